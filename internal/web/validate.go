// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"github.com/samber/oops"

	"github.com/whisperbox/whisperbox/internal/auth"
)

type signUpRequest struct {
	Username string `json:"username" jsonschema:"required,maxLength=64"`
	Email    string `json:"email" jsonschema:"required,maxLength=254"`
	Password string `json:"password" jsonschema:"required,maxLength=256"`
}

type verifyCodeRequest struct {
	Username string `json:"username" jsonschema:"required,maxLength=64"`
	Code     string `json:"code" jsonschema:"required,pattern=^[0-9]{6}$"`
}

type signInRequest struct {
	Identifier string `json:"identifier" jsonschema:"required,minLength=1,maxLength=254"`
	Password   string `json:"password" jsonschema:"required,minLength=1,maxLength=256"`
}

type acceptMessagesRequest struct {
	AcceptMessages bool `json:"acceptMessages" jsonschema:"required"`
}

type sendMessageRequest struct {
	Username string `json:"username" jsonschema:"required,minLength=1,maxLength=64"`
	Content  string `json:"content" jsonschema:"required"`
}

// requestBodies names the request body of each API endpoint.
var requestBodies = map[string]any{
	"sign-up":         &signUpRequest{},
	"verify-code":     &verifyCodeRequest{},
	"sign-in":         &signInRequest{},
	"accept-messages": &acceptMessagesRequest{},
	"send-message":    &sendMessageRequest{},
}

func reflectSchema(v any) *jsonschema.Schema {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  true,
	}
	return r.Reflect(v)
}

// RequestSchemas returns the indented JSON Schema of every API request
// body, keyed by endpoint name.
func RequestSchemas() (map[string][]byte, error) {
	out := make(map[string][]byte, len(requestBodies))
	for name, body := range requestBodies {
		schema := reflectSchema(body)
		schema.Title = "Whisperbox " + name + " request"

		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return nil, oops.Code("SCHEMA_MARSHAL_FAILED").With("endpoint", name).Wrap(err)
		}
		out[name] = data
	}
	return out, nil
}

// schemas compiles one JSON Schema per request type on first use.
type schemas struct {
	mu       sync.Mutex
	compiled map[reflect.Type]*jschema.Schema
}

func newSchemas() *schemas {
	return &schemas{compiled: make(map[reflect.Type]*jschema.Schema)}
}

func (s *schemas) get(v any) (*jschema.Schema, error) {
	t := reflect.TypeOf(v)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sch, ok := s.compiled[t]; ok {
		return sch, nil
	}

	data, err := json.Marshal(reflectSchema(v))
	if err != nil {
		return nil, oops.With("type", t.String()).Wrap(err)
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, oops.With("type", t.String()).Wrap(err)
	}

	url := t.String() + ".json"
	c := jschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, oops.With("type", t.String()).Wrap(err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, oops.With("type", t.String()).Wrap(err)
	}
	s.compiled[t] = sch
	return sch, nil
}

// decode validates body against the schema of dst and then unmarshals it
// into dst. Validation failures carry auth.CodeValidation and the field.
func (s *schemas) decode(body []byte, dst any) error {
	sch, err := s.get(dst)
	if err != nil {
		return err
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return invalidBody(err)
	}

	if err := sch.Validate(doc); err != nil {
		var verr *jschema.ValidationError
		if errors.As(err, &verr) {
			return validationError(verr)
		}
		return invalidBody(err)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return invalidBody(err)
	}
	return nil
}

// validationError reports the first leaf cause of verr.
func validationError(verr *jschema.ValidationError) error {
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	field := ""
	if n := len(leaf.InstanceLocation); n > 0 {
		field = leaf.InstanceLocation[n-1]
	}

	var msg string
	switch k := leaf.ErrorKind.(type) {
	case *kind.Required:
		if len(k.Missing) > 0 {
			field = k.Missing[0]
		}
		msg = fmt.Sprintf("%s is required", field)
	case *kind.Type:
		msg = fmt.Sprintf("%s must be of type %s", field, joinTypes(k.Want))
	case *kind.MaxLength:
		msg = fmt.Sprintf("%s must be no more than %d characters", field, k.Want)
	case *kind.MinLength:
		msg = fmt.Sprintf("%s must be at least %d characters", field, k.Want)
	case *kind.Pattern:
		msg = fmt.Sprintf("%s is malformed", field)
	default:
		msg = "Invalid request body"
	}

	e := oops.Code(auth.CodeValidation)
	if field != "" {
		e = e.With("field", field)
	}
	return e.Errorf("%s", msg)
}

// invalidBody keeps the parser error in context so the public message
// stays short.
func invalidBody(err error) error {
	return oops.Code(auth.CodeValidation).
		With("cause", err.Error()).
		Errorf("Invalid request body")
}

func joinTypes(types []string) string {
	if len(types) == 1 {
		return types[0]
	}
	return fmt.Sprint(types)
}
