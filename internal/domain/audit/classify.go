package audit

import (
	"net/http"
	"strings"
)

// Classification is the derived action/entity pair for one request.
type Classification struct {
	Action Action
	Entity EntityType
}

// actionRules maps {method, literal final path segment} to an action. An
// empty method or suffix matches anything; rules are evaluated in order,
// first match wins, and the trailing catch-all keeps the table exhaustive.
var actionRules = []struct {
	method string
	suffix string
	action Action
}{
	{"", "upload", ActionUpload},
	{http.MethodPost, "review", ActionReview},
	{http.MethodPost, "", ActionCreate},
	{http.MethodPut, "", ActionUpdate},
	{http.MethodPatch, "", ActionUpdate},
	{http.MethodDelete, "", ActionDelete},
	{"", "", ActionRead},
}

// entityRules maps the first path segment under the API prefix to an
// entity type.
var entityRules = map[string]EntityType{
	"tests":       EntityTest,
	"photos":      EntityPhoto,
	"defects":     EntityDefect,
	"albums":      EntityAlbum,
	"users":       EntityUser,
	"permissions": EntityPermission,
}

const apiPrefix = "/api/v1/"

// Audited reports whether a request should produce an audit entry:
// state-changing calls under the API mutation namespace. Reads are
// excluded as noise.
func Audited(method, path string) bool {
	if !strings.HasPrefix(path, apiPrefix) {
		return false
	}
	return strings.ToUpper(method) != http.MethodGet
}

// Classify derives the action and entity type for a request from the
// static rule tables.
func Classify(method, path string) Classification {
	method = strings.ToUpper(method)
	suffix := lastSegment(path)

	c := Classification{Action: ActionRead, Entity: EntityUnknown}
	for _, rule := range actionRules {
		if rule.method != "" && rule.method != method {
			continue
		}
		if rule.suffix != "" && rule.suffix != suffix {
			continue
		}
		c.Action = rule.action
		break
	}

	if rest, ok := strings.CutPrefix(path, apiPrefix); ok {
		head := rest
		if idx := strings.IndexByte(head, '/'); idx >= 0 {
			head = head[:idx]
		}
		if entity, ok := entityRules[head]; ok {
			c.Entity = entity
		}
	}

	return c
}

func lastSegment(path string) string {
	path = strings.TrimSuffix(path, "/")
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
