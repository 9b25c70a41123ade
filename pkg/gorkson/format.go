package gorkson

import (
	"mime"
	"reflect"
	"strings"
)

var documentType = reflect.TypeOf(Document{})

// Format converts document nodes to and from a wire encoding.
type Format interface {
	Name() string
	ContentType() string
	Marshal(node any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
}

// Built-in formats.
var (
	JSON    Format = JSONFormat{}
	YAML    Format = YAMLFormat{}
	CBOR    Format = CBORFormat{}
	MsgPack Format = MsgPackFormat{}
)

// Formats lists the built-in formats in preference order.
func Formats() []Format {
	return []Format{JSON, YAML, CBOR, MsgPack}
}

// FormatByName returns the built-in format with the given name. "yml" and
// "jsonc" are accepted as aliases.
func FormatByName(name string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return JSON, true
	case "jsonc":
		return JSONFormat{AllowComments: true}, true
	case "yaml", "yml":
		return YAML, true
	case "cbor":
		return CBOR, true
	case "msgpack", "messagepack":
		return MsgPack, true
	}
	return nil, false
}

// FormatByContentType maps a media type (parameters allowed) to a format.
func FormatByContentType(contentType string) (Format, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	switch mediaType {
	case "application/json", "text/json":
		return JSON, true
	case "application/yaml", "application/x-yaml", "text/yaml":
		return YAML, true
	case "application/cbor":
		return CBOR, true
	case "application/msgpack", "application/x-msgpack", "application/vnd.msgpack":
		return MsgPack, true
	}
	if strings.HasSuffix(mediaType, "+json") {
		return JSON, true
	}
	return nil, false
}
