package api

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/companies/internal/apperr"
)

const maxBodyBytes = 1 << 20

//go:embed schemas/job_description.json
var jobDescriptionSchemaJSON []byte

var jobDescriptionSchema = mustSchema(jobDescriptionSchemaJSON)

func mustSchema(b []byte) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(b, rs); err != nil {
		panic(fmt.Sprintf("compile embedded schema: %v", err))
	}
	return rs
}

// decodeValidated reads the request body, checks it against rs and decodes it into v.
func decodeValidated(r *http.Request, rs *jsonschema.Schema, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperr.New(apperr.Validation, "unreadable body", err)
	}

	verrs, err := rs.ValidateBytes(r.Context(), body)
	if err != nil {
		return apperr.New(apperr.Validation, "invalid json", err)
	}
	if len(verrs) > 0 {
		return apperr.New(apperr.Validation, verrs[0].Error(), nil)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return apperr.New(apperr.Validation, "invalid json", err)
	}
	return nil
}

// decodeJSON decodes a plain JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return apperr.New(apperr.Validation, "invalid request", err)
	}
	return nil
}
