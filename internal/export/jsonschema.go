package export

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	apperrors "github.com/anime-shed/face-batch-inspector-go/internal/errors"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

// EnrichedSchema returns the JSON Schema describing the enriched export document
func EnrichedSchema() ([]byte, error) {
	return reflectSchema(&EnrichedExport{}, "Enriched facial analysis export")
}

// RecordsSchema returns the JSON Schema describing the raw JSON export
func RecordsSchema() ([]byte, error) {
	return reflectSchema(&[]models.BatchRecord{}, "Facial analysis batch records")
}

func reflectSchema(v any, title string) ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(v)
	schema.Title = title

	raw, err := schema.MarshalJSON()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode JSON schema", err)
	}
	var out json.RawMessage = raw
	indented, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, apperrors.NewInternalError("failed to indent JSON schema", err)
	}
	return append(indented, '\n'), nil
}
