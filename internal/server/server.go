// Package server exposes the Item family over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/gork-labs/gork/internal/config"
	"github.com/gork-labs/gork/internal/logging"
	"github.com/gork-labs/gork/internal/models"
	"github.com/gork-labs/gork/pkg/api"
	"github.com/gork-labs/gork/pkg/gorkson"
	"github.com/gork-labs/gork/pkg/polymorph"
)

const maxBodyBytes = 1 << 20

// SpecPath is where the OpenAPI document is served.
const SpecPath = "/swagger/v1/swagger.json"

// ItemList is the collection envelope returned by the Items endpoints.
type ItemList struct {
	Value []models.Item `json:"value"`
}

// ItemAList is the collection envelope returned by the ItemAs endpoints.
type ItemAList struct {
	Value []models.ItemA `json:"value"`
}

// Server serves the Item family.
type Server struct {
	cfg    config.Config
	logger zerolog.Logger
	reg    *polymorph.Registry
	codec  *polymorph.Codec
	spec   *api.Spec
	format gorkson.Format
	store  *store
	router chi.Router
}

// New builds a server from cfg.
func New(cfg config.Config, logger zerolog.Logger) (*Server, error) {
	reg, err := models.Registry()
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		reg:    reg,
		codec:  polymorph.NewCodec(reg, cfg.CodecOptions()...),
		spec:   api.NewSpec(cfg.Server.Title, "v1", reg, cfg.Marshaler()),
		format: cfg.WireFormat(),
		store:  newStore(models.Seed()),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.router }

// Spec returns the OpenAPI document describing the routes.
func (s *Server) Spec() *api.Spec { return s.spec }

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	itemList := s.spec.SchemaFor(reflect.TypeOf(ItemList{}))
	itemAList := s.spec.SchemaFor(reflect.TypeOf(ItemAList{}))
	item := s.spec.SchemaFor(models.ItemType)
	itemA := s.spec.SchemaFor(models.ItemAGoType)

	s.route(r, http.MethodGet, "/api/Items", s.listItems, &api.Operation{
		OperationID: "Items_Get",
		Tags:        []string{"Items"},
		Responses:   okResponse(itemList),
	})
	s.route(r, http.MethodPost, "/api/Items", s.createItem, &api.Operation{
		OperationID: "Items_Post",
		Tags:        []string{"Items"},
		RequestBody: requestBody(item),
		Responses:   createdResponse(item),
	})
	s.route(r, http.MethodGet, "/api/Items/{cast}", s.listItemsOfType, &api.Operation{
		OperationID: "Items_GetFromType",
		Tags:        []string{"Items"},
		Parameters: []api.Parameter{{
			Name:        "cast",
			In:          "path",
			Required:    true,
			Description: "Qualified type name, e.g. Item.ItemA",
			Schema:      &api.Schema{Type: "string"},
		}},
		Responses: okResponse(itemList),
	})
	s.route(r, http.MethodGet, "/api/ItemAs", s.listItemAs, &api.Operation{
		OperationID: "ItemAs_Get",
		Tags:        []string{"ItemAs"},
		Responses:   okResponse(itemAList),
	})
	s.route(r, http.MethodPost, "/api/ItemAs", s.createItemA, &api.Operation{
		OperationID: "ItemAs_Post",
		Tags:        []string{"ItemAs"},
		RequestBody: requestBody(itemA),
		Responses:   createdResponse(itemA),
	})

	r.Get(SpecPath, s.serveSpec(gorkson.JSON))
	r.Get("/swagger/v1/swagger.yaml", s.serveSpec(gorkson.YAML))

	s.router = r
}

func (s *Server) route(r chi.Router, method, path string, h http.HandlerFunc, op *api.Operation) {
	r.Method(method, path, h)
	s.spec.AddOperation(path, method, op)
}

func okResponse(schema *api.Schema) map[string]*api.Response {
	return map[string]*api.Response{
		"200": {Description: "OK", Content: mediaTypes(schema)},
		"406": {Description: "Not Acceptable"},
	}
}

func createdResponse(schema *api.Schema) map[string]*api.Response {
	return map[string]*api.Response{
		"201": {Description: "Created", Content: mediaTypes(schema)},
		"400": api.ResponseRef("BadRequest"),
		"415": {Description: "Unsupported Media Type"},
	}
}

func requestBody(schema *api.Schema) *api.RequestBody {
	return &api.RequestBody{Required: true, Content: mediaTypes(schema)}
}

func mediaTypes(schema *api.Schema) map[string]api.MediaType {
	out := map[string]api.MediaType{}
	for _, f := range gorkson.Formats() {
		out[f.ContentType()] = api.MediaType{Schema: schema}
	}
	return out
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, http.StatusOK, ItemList{Value: s.store.list(nil)})
}

func (s *Server) listItemsOfType(w http.ResponseWriter, r *http.Request) {
	cast := chi.URLParam(r, "cast")
	target, ok := s.reg.LookupName(cast)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown type %q", cast))
		return
	}
	items := s.store.list(func(item models.Item) bool {
		t, ok := s.reg.Lookup(reflect.TypeOf(item))
		return ok && t.DescendsFrom(target)
	})
	s.write(w, r, http.StatusOK, ItemList{Value: items})
}

func (s *Server) listItemAs(w http.ResponseWriter, r *http.Request) {
	var out []models.ItemA
	for _, item := range s.store.list(nil) {
		if a, ok := item.(models.ItemA); ok {
			out = append(out, a)
		}
	}
	if out == nil {
		out = []models.ItemA{}
	}
	s.write(w, r, http.StatusOK, ItemAList{Value: out})
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	v, ok := s.read(w, r, models.ItemType)
	if !ok {
		return
	}
	item, ok := v.(models.Item)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("%T is not an Item", v))
		return
	}
	s.writeItem(w, r, s.store.add(item), models.ItemType)
}

func (s *Server) createItemA(w http.ResponseWriter, r *http.Request) {
	v, ok := s.read(w, r, models.ItemAGoType)
	if !ok {
		return
	}
	a, ok := v.(*models.ItemA)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("%T is not an ItemA", v))
		return
	}
	s.writeItem(w, r, s.store.add(a), models.ItemAGoType)
}

// read decodes and validates the request body against base. It writes the
// error response itself and reports false on failure.
func (s *Server) read(w http.ResponseWriter, r *http.Request, base reflect.Type) (any, bool) {
	f, ok := requestFormat(r, s.format)
	if !ok {
		s.writeError(w, http.StatusUnsupportedMediaType, "unsupported content type "+r.Header.Get("Content-Type"))
		return nil, false
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return nil, false
	}

	v, err := s.codec.Unmarshal(data, base, f)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if v == nil {
		s.writeError(w, http.StatusBadRequest, "request body is empty")
		return nil, false
	}

	if err := api.Validate(v); err != nil {
		var verr *api.ValidationErrorResponse
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, verr)
			return nil, false
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return v, true
}

func (s *Server) writeItem(w http.ResponseWriter, r *http.Request, item models.Item, base reflect.Type) {
	f, ok := responseFormat(r, s.format)
	if !ok {
		s.writeError(w, http.StatusNotAcceptable, "no acceptable format")
		return
	}
	data, err := s.codec.Marshal(item, base, f)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeBody(w, http.StatusCreated, f.ContentType(), data)
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, status int, v any) {
	f, ok := responseFormat(r, s.format)
	if !ok {
		s.writeError(w, http.StatusNotAcceptable, "no acceptable format")
		return
	}
	data, err := s.codec.Marshal(v, nil, f)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeBody(w, status, f.ContentType(), data)
}

func (s *Server) serveSpec(f gorkson.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data, err := s.spec.Encode(f)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeBody(w, http.StatusOK, f.ContentType(), data)
	}
}

func writeBody(w http.ResponseWriter, status int, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	// 5xx details stay in the log.
	clientMessage := message
	if code >= 500 {
		clientMessage = http.StatusText(code)
		s.logger.Error().Int("status", code).Msg(message)
	}
	writeJSON(w, code, api.ErrorResponse{Error: clientMessage})
}
