package shortcut

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"howett.net/plist"
)

// dictionaryActionID is the workflow action holding the identifier dictionary
const dictionaryActionID = "is.workflow.actions.dictionary"

// Identifiers are the values embedded into a shortcut
type Identifiers struct {
	UserID int64
	JobID  int64
}

// identifierKeys maps every accepted key spelling to the identifier it carries
var identifierKeys = map[string]func(Identifiers) int64{
	"userId":  func(ids Identifiers) int64 { return ids.UserID },
	"user_id": func(ids Identifiers) int64 { return ids.UserID },
	"jobId":   func(ids Identifiers) int64 { return ids.JobID },
	"job_id":  func(ids Identifiers) int64 { return ids.JobID },
}

// PatchJSONTemplate decodes a JSON shortcut source, sets the userId and jobId
// entries of its dictionary actions and encodes it as a binary plist.
func PatchJSONTemplate(data []byte, ids Identifiers) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode JSON shortcut: %w", err)
	}

	root = plistValue(root)
	patchDictionaryActions(root, ids)

	out, err := plist.Marshal(root, plist.BinaryFormat)
	if err != nil {
		return nil, fmt.Errorf("encode binary plist: %w", err)
	}
	return out, nil
}

// PatchBinaryTemplate patches a compiled shortcut. Property lists are decoded
// and patched structurally, then re-encoded as binary. Payloads that are not a
// dictionary plist get the textual patch instead.
func PatchBinaryTemplate(data []byte, ids Identifiers) ([]byte, error) {
	var root interface{}
	if _, err := plist.Unmarshal(data, &root); err != nil {
		return PatchText(data, ids), nil
	}
	if _, ok := root.(map[string]interface{}); !ok {
		return PatchText(data, ids), nil
	}

	patchDictionaryActions(root, ids)
	patchIdentifierKeys(root, ids)

	out, err := plist.Marshal(root, plist.BinaryFormat)
	if err != nil {
		return nil, fmt.Errorf("encode binary plist: %w", err)
	}
	return out, nil
}

type textPattern struct {
	re          *regexp.Regexp
	replacement func(Identifiers) []byte
}

var textPatterns = buildTextPatterns()

func buildTextPatterns() []textPattern {
	var patterns []textPattern
	for _, key := range []string{"userId", "jobId", "user_id", "job_id"} {
		id := identifierKeys[key]
		quoted := regexp.QuoteMeta(`"` + key + `"`)
		k := key
		patterns = append(patterns,
			textPattern{
				re: regexp.MustCompile(quoted + `\s*:\s*"[^"]*"`),
				replacement: func(ids Identifiers) []byte {
					return []byte(fmt.Sprintf(`"%s":"%d"`, k, id(ids)))
				},
			},
			textPattern{
				re: regexp.MustCompile(quoted + `\s*:\s*\d+`),
				replacement: func(ids Identifiers) []byte {
					return []byte(fmt.Sprintf(`"%s":%d`, k, id(ids)))
				},
			},
		)
	}
	return patterns
}

// PatchText rewrites "key":"value" and "key":123 occurrences of the
// identifier keys. Every other byte is copied unchanged.
func PatchText(data []byte, ids Identifiers) []byte {
	out := data
	for _, p := range textPatterns {
		out = p.re.ReplaceAllLiteral(out, p.replacement(ids))
	}
	return out
}

// patchDictionaryActions sets WFValue.Value.string for the userId and jobId
// items of every dictionary action
func patchDictionaryActions(root interface{}, ids Identifiers) {
	doc, ok := root.(map[string]interface{})
	if !ok {
		return
	}
	actions, ok := doc["WFWorkflowActions"].([]interface{})
	if !ok {
		return
	}

	for _, a := range actions {
		action, ok := a.(map[string]interface{})
		if !ok || action["WFWorkflowActionIdentifier"] != dictionaryActionID {
			continue
		}
		items, ok := lookup(action, "WFWorkflowActionParameters", "WFItems", "Value", "WFDictionaryFieldValueItems").([]interface{})
		if !ok {
			continue
		}

		for _, it := range items {
			item, ok := it.(map[string]interface{})
			if !ok {
				continue
			}
			key, _ := lookup(item, "WFKey", "Value", "string").(string)
			var id int64
			switch key {
			case "userId":
				id = ids.UserID
			case "jobId":
				id = ids.JobID
			default:
				continue
			}
			if value, ok := lookup(item, "WFValue", "Value").(map[string]interface{}); ok {
				value["string"] = strconv.FormatInt(id, 10)
			}
		}
	}
}

// patchIdentifierKeys replaces the value of any dictionary entry keyed by an
// identifier spelling, keeping strings as strings and integers as integers
func patchIdentifierKeys(v interface{}, ids Identifiers) {
	switch node := v.(type) {
	case map[string]interface{}:
		for k, child := range node {
			if id, ok := identifierKeys[k]; ok {
				if replaced, ok := replaceIdentifier(child, id(ids)); ok {
					node[k] = replaced
					continue
				}
			}
			patchIdentifierKeys(child, ids)
		}
	case []interface{}:
		for _, child := range node {
			patchIdentifierKeys(child, ids)
		}
	}
}

func replaceIdentifier(current interface{}, id int64) (interface{}, bool) {
	switch current.(type) {
	case string:
		return strconv.FormatInt(id, 10), true
	case uint64:
		return uint64(id), true // #nosec G115 - identifiers are validated positive
	case int64:
		return id, true
	case int:
		return int(id), true
	default:
		return nil, false
	}
}

func lookup(v interface{}, path ...string) interface{} {
	for _, key := range path {
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

// plistValue converts decoded JSON into values the plist encoder accepts.
// Integral numbers become int64, or uint64 above the int64 range; nulls are
// dropped because property lists have no null.
func plistValue(v interface{}) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		for k, child := range node {
			if child == nil {
				delete(node, k)
				continue
			}
			node[k] = plistValue(child)
		}
		return node
	case []interface{}:
		out := node[:0]
		for _, child := range node {
			if child != nil {
				out = append(out, plistValue(child))
			}
		}
		return out
	case json.Number:
		if i, err := node.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(node.String(), 10, 64); err == nil {
			return u
		}
		if f, err := node.Float64(); err == nil {
			return f
		}
		return node.String()
	default:
		return v
	}
}
