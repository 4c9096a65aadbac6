package tenantdb

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
)

var (
	// Canonical 8-4-4-4-12 hex form only; other UUID encodings stay "text".
	uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// Date-prefixed ISO-like strings with a T separator.
	timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)
)

// inferType classifies a single JSON sample value. Strings start as text and
// the uuid and timestamp checks run as independent overwrites (uuid first) so
// a malformed value matching both ends up "timestamp".
func inferType(value any) string {
	switch v := value.(type) {
	case nil:
		return models.TypeNull
	case string:
		inferred := models.TypeText
		if uuidPattern.MatchString(v) {
			inferred = models.TypeUUID
		}
		if timestampPattern.MatchString(v) {
			inferred = models.TypeTimestamp
		}
		return inferred
	case json.Number:
		if strings.ContainsAny(v.String(), ".eE") {
			return models.TypeNumeric
		}
		return models.TypeInteger
	case bool:
		return models.TypeBoolean
	case []any:
		return models.TypeArray
	case map[string]any:
		return models.TypeJSONB
	default:
		return models.TypeUnknown
	}
}
