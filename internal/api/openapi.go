package api

import (
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/raccoonforest/ailink/internal/recorder"
	"github.com/raccoonforest/ailink/pkg/session"
)

func (c *Component) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildOpenAPISpec())
}

func buildOpenAPISpec() *openapi3.T {
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "ailink API",
			Description: "Management REST API for ailinkd - AI game controller daemon",
			Version:     "1.0.0",
		},
		Paths: &openapi3.Paths{},
	}

	spec.Paths.Set("/v1/status", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"Status"},
			Summary:     "Get daemon status",
			OperationID: "getStatus",
			Responses:   jsonResponses("Controller, listener and event bus status", reflect.TypeOf(statusResponse{})),
		},
	})

	spec.Paths.Set("/v1/sessions", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"Sessions"},
			Summary:     "List active game sessions",
			OperationID: "listSessions",
			Responses:   jsonResponses("Active sessions", reflect.TypeOf([]session.Info{})),
		},
	})

	spec.Paths.Set("/v1/episodes", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"Episodes"},
			Summary:     "List recorded episodes",
			OperationID: "listEpisodes",
			Parameters: openapi3.Parameters{
				{Value: &openapi3.Parameter{
					Name:     "limit",
					In:       "query",
					Required: false,
					Schema:   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
				}},
			},
			Responses: jsonResponses("Recorded episodes, newest first", reflect.TypeOf([]recorder.Episode{})),
		},
	})

	spec.Paths.Set("/v1/episodes/{id}", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"Episodes"},
			Summary:     "Get recorded steps for an episode",
			OperationID: "getEpisodeSteps",
			Parameters: openapi3.Parameters{
				{Value: &openapi3.Parameter{
					Name:     "id",
					In:       "path",
					Required: true,
					Schema:   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				}},
			},
			Responses: jsonResponses("Episode steps in sequence order", reflect.TypeOf([]recorder.Step{})),
		},
	})

	spec.Paths.Set("/v1/strategy", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"Strategy"},
			Summary:     "Get the active brain strategy",
			OperationID: "getStrategy",
			Responses:   jsonResponses("Active and available strategies", reflect.TypeOf(strategyResponse{})),
		},
		Put: &openapi3.Operation{
			Tags:        []string{"Strategy"},
			Summary:     "Switch the brain strategy for new sessions",
			OperationID: "setStrategy",
			RequestBody: &openapi3.RequestBodyRef{
				Value: &openapi3.RequestBody{
					Required: true,
					Content: openapi3.NewContentWithJSONSchemaRef(
						schemaFromType(reflect.TypeOf(strategyRequest{})),
					),
				},
			},
			Responses: jsonResponses("Active and available strategies", reflect.TypeOf(strategyResponse{})),
		},
	})

	spec.Paths.Set("/v1/logging", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"Logging"},
			Summary:     "Get log level configuration",
			OperationID: "getLogging",
			Responses:   jsonResponses("Default level and per-component overrides", reflect.TypeOf(loggingResponse{})),
		},
		Put: &openapi3.Operation{
			Tags:        []string{"Logging"},
			Summary:     "Set or clear a per-component log level",
			OperationID: "setLogging",
			RequestBody: &openapi3.RequestBodyRef{
				Value: &openapi3.RequestBody{
					Required: true,
					Content: openapi3.NewContentWithJSONSchemaRef(
						schemaFromType(reflect.TypeOf(loggingRequest{})),
					),
				},
			},
			Responses: jsonResponses("Default level and per-component overrides", reflect.TypeOf(loggingResponse{})),
		},
	})

	spec.Tags = openapi3.Tags{
		{Name: "Status", Description: "Status endpoints"},
		{Name: "Sessions", Description: "Session endpoints"},
		{Name: "Episodes", Description: "Episode recording endpoints"},
		{Name: "Strategy", Description: "Brain strategy endpoints"},
		{Name: "Logging", Description: "Runtime log level endpoints"},
	}

	return spec
}

func jsonResponses(desc string, t reflect.Type) *openapi3.Responses {
	return openapi3.NewResponses(
		openapi3.WithStatus(200, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: ptr(desc),
				Content: openapi3.NewContentWithJSONSchemaRef(
					schemaFromType(t),
				),
			},
		}),
	)
}

func schemaFromType(t reflect.Type) *openapi3.SchemaRef {
	if t == nil {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}

	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == reflect.TypeOf(time.Time{}) {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}}
	}

	switch t.Kind() {
	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}
	case reflect.Float32, reflect.Float64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}}}
	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
	case reflect.Slice, reflect.Array:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: schemaFromType(t.Elem()),
		}}
	case reflect.Map:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:                 &openapi3.Types{"object"},
			AdditionalProperties: openapi3.AdditionalProperties{Schema: schemaFromType(t.Elem())},
		}}
	case reflect.Struct:
		props := openapi3.Schemas{}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag := f.Tag.Get("json"); tag != "" {
				if tag == "-" {
					continue
				}
				if comma := strings.IndexByte(tag, ','); comma >= 0 {
					tag = tag[:comma]
				}
				if tag != "" {
					name = tag
				}
			}
			props[name] = schemaFromType(f.Type)
		}
		return &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
		}}
	default:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}
}

func ptr(s string) *string {
	return &s
}
