// Package canonical renders answer payloads into stable, order-independent
// forms so that two submissions of the same interview compare equal no
// matter how the client serialized them.
//
// Rendering rules: strings are whitespace-trimmed and Unicode-normalized
// (NFC); numbers collapse to a minimal decimal form so 5, 5.0, and
// 5.000 agree; array elements are canonicalized and then sorted, making
// element order irrelevant; object keys are sorted. Every scalar carries
// a type tag, so the string "5" and the number 5 stay distinct.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"opine/internal/survey"
)

// Value returns the canonical rendering of a single answer value.
func Value(v any) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

// Answers returns the canonical rendering of a full answer set keyed by
// question id. Repeated question ids collapse into one sorted group, so
// the result is insensitive to both answer order and duplication.
func Answers(answers []survey.Answer) string {
	grouped := make(map[string][]string, len(answers))
	for _, answer := range answers {
		key := cleanString(answer.QuestionID)
		grouped[key] = append(grouped[key], Value(answer.Value))
	}

	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		values := grouped[key]
		sort.Strings(values)
		b.WriteString(strconv.Quote(key))
		b.WriteByte('=')
		if len(values) == 1 {
			b.WriteString(values[0])
		} else {
			b.WriteByte('[')
			b.WriteString(strings.Join(values, ","))
			b.WriteByte(']')
		}
	}
	b.WriteByte('}')
	return b.String()
}

// Fingerprint condenses the canonical answer set into a fixed-size hex
// digest. Equal fingerprints mean equal canonical forms.
func Fingerprint(answers []survey.Answer) string {
	sum := sha256.Sum256([]byte(Answers(answers)))
	return hex.EncodeToString(sum[:])
}

func writeValue(b *strings.Builder, v any) {
	switch value := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if value {
			b.WriteString("b:true")
		} else {
			b.WriteString("b:false")
		}
	case string:
		b.WriteString("s:")
		b.WriteString(strconv.Quote(cleanString(value)))
	case float64:
		writeNumber(b, value)
	case float32:
		writeNumber(b, float64(value))
	case int:
		writeNumber(b, float64(value))
	case int32:
		writeNumber(b, float64(value))
	case int64:
		writeNumber(b, float64(value))
	case []any:
		elements := make([]string, len(value))
		for i, element := range value {
			elements[i] = Value(element)
		}
		sort.Strings(elements)
		b.WriteByte('[')
		b.WriteString(strings.Join(elements, ","))
		b.WriteByte(']')
	case []string:
		elements := make([]string, len(value))
		for i, element := range value {
			elements[i] = Value(element)
		}
		sort.Strings(elements)
		b.WriteByte('[')
		b.WriteString(strings.Join(elements, ","))
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(cleanString(key)))
			b.WriteByte('=')
			writeValue(b, value[key])
		}
		b.WriteByte('}')
	default:
		// Values outside the JSON vocabulary come only from programmatic
		// callers; render them deterministically rather than failing.
		b.WriteString("x:")
		b.WriteString(fmt.Sprintf("%v", value))
	}
}

func writeNumber(b *strings.Builder, value float64) {
	b.WriteString("n:")
	b.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
}

func cleanString(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}
