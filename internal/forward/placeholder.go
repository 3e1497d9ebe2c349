package forward

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Placeholder expressions are emitted here and evaluated by the Forward API,
// never locally.

// Field returns a card-data placeholder, e.g. {{card_number}}.
func Field(name string) string { return "{{" + name + "}}" }

// Secret returns a secret-store placeholder, e.g. {{ secret.visa_api_key }}.
func Secret(name string) string { return "{{ secret." + name + " }}" }

// JWEEncrypt returns the expression asking the Forward API to JWE-encrypt
// the named variable with the given key and headers variables.
func JWEEncrypt(payload, key, alg, enc, headers string) string {
	return fmt.Sprintf("{{ jwe_encrypt(%s, key=%s, alg='%s', enc='%s', headers=%s) }}",
		payload, key, alg, enc, headers)
}

type PlaceholderKind string

const (
	KindField    PlaceholderKind = "field"
	KindSecret   PlaceholderKind = "secret"
	KindFunction PlaceholderKind = "function"
)

type Placeholder struct {
	Expr string // trimmed inner expression
	Kind PlaceholderKind
	Name string // field name, secret name or function name
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*(.+?)\s*\}\}`)

// Placeholders lists the {{ ... }} expressions found in s, in order of
// appearance.
func Placeholders(s string) []Placeholder {
	var out []Placeholder
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		out = append(out, classify(m[1]))
	}
	return out
}

func classify(expr string) Placeholder {
	p := Placeholder{Expr: expr, Kind: KindField, Name: expr}
	switch {
	case strings.HasPrefix(expr, "secret."):
		p.Kind = KindSecret
		p.Name = strings.TrimPrefix(expr, "secret.")
	case strings.Contains(expr, "("):
		p.Kind = KindFunction
		p.Name = strings.TrimSpace(expr[:strings.Index(expr, "(")])
	}
	return p
}

// RequestPlaceholders collects the placeholders of every templated part of
// an envelope: destination URL, headers, body, query and variable values.
func RequestPlaceholders(r *Request) []Placeholder {
	if r == nil {
		return nil
	}
	dr := r.DestinationRequest
	parts := []string{dr.URL, dr.Body}
	keys := make([]string, 0, len(dr.Headers.Raw))
	for k := range dr.Headers.Raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, dr.Headers.Raw[k])
	}
	for _, q := range dr.Query {
		parts = append(parts, q.Value)
	}
	for _, v := range dr.Variables {
		parts = append(parts, v.Value)
	}
	if dr.Signature.VisaParameters != nil {
		parts = append(parts, dr.Signature.VisaParameters.SharedSecret)
	}

	seen := map[string]bool{}
	var out []Placeholder
	for _, s := range parts {
		for _, p := range Placeholders(s) {
			if seen[p.Expr] {
				continue
			}
			seen[p.Expr] = true
			out = append(out, p)
		}
	}
	return out
}
