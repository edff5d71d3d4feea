// Package synthetic provides deterministic offline scanners. Every output is
// derived from a hash of the query so repeated runs agree.
package synthetic

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/scanner"
)

var (
	firstNames = []string{"Alice", "Bruno", "Chen", "Dana", "Emeka", "Farah", "Goran", "Hana"}
	lastNames  = []string{"Smith", "Okafor", "Lindqvist", "Moreau", "Tanaka", "Novak", "Reyes", "Haddad"}
	sites      = []string{"forum-dump-2019", "retail-leak-2021", "gaming-combo-2020", "saas-export-2022"}
	carriers   = []string{"Northwind Mobile", "Contoso Telecom", "Fabrikam Wireless"}
	platforms  = []string{"github", "reddit", "mastodon", "keybase"}
)

type buildFunc func(q model.Query, seed uint64) scanner.Output

// Scanner is a canned scanner with an optional simulated latency.
type Scanner struct {
	name     string
	category string
	handles  []model.QueryType
	enabled  bool
	delay    time.Duration
	build    buildFunc
}

func (s *Scanner) Name() string     { return s.name }
func (s *Scanner) Category() string { return s.category }
func (s *Scanner) Enabled() bool    { return s.enabled }

func (s *Scanner) CanHandle(q model.Query) bool {
	for _, t := range s.handles {
		if t == q.Type {
			return true
		}
	}
	return false
}

func (s *Scanner) Scan(ctx context.Context, q model.Query) (scanner.Output, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return scanner.Output{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.build(q, seed(s.name, q)), nil
}

type Options struct {
	Delay    time.Duration
	Disabled []string
}

// Default returns the built-in scanner set.
func Default(opts Options) []scanner.Scanner {
	disabled := make(map[string]bool, len(opts.Disabled))
	for _, name := range opts.Disabled {
		disabled[name] = true
	}
	all := []*Scanner{
		{name: "breach_lookup", category: "email", handles: []model.QueryType{model.QueryTypeEmail}, build: breachLookup},
		{name: "carrier_lookup", category: "phone", handles: []model.QueryType{model.QueryTypePhone}, build: carrierLookup},
		{name: "social_profile", category: "social", handles: []model.QueryType{model.QueryTypeUsername, model.QueryTypeEmail}, build: socialProfile},
		{name: "people_search", category: "people", handles: []model.QueryType{model.QueryTypeEmail, model.QueryTypePhone, model.QueryTypeName}, build: peopleSearch},
	}
	out := make([]scanner.Scanner, 0, len(all))
	for _, s := range all {
		s.enabled = !disabled[s.name]
		s.delay = opts.Delay
		out = append(out, s)
	}
	return out
}

func seed(name string, q model.Query) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(string(q.Type)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(q.Value)))
	return h.Sum64()
}

func pick(list []string, seed uint64, shift uint) string {
	return list[(seed>>shift)%uint64(len(list))]
}

func fullName(seed uint64) string {
	return pick(firstNames, seed, 0) + " " + pick(lastNames, seed, 8)
}

func confidence(seed uint64, base float64) float64 {
	return base + float64((seed>>16)%30)/100
}

func phoneFor(seed uint64) string {
	return fmt.Sprintf("+1 (555) %03d-%04d", (seed>>24)%1000, (seed>>40)%10000)
}

func breachLookup(q model.Query, seed uint64) scanner.Output {
	n := int(seed%3) + 1
	records := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, map[string]interface{}{
			"email":       q.Value,
			"name":        fullName(seed >> uint(i)),
			"breach_site": pick(sites, seed, uint(4*i)),
		})
	}
	return scanner.Output{
		Data:       map[string]interface{}{"breaches": n, "records": records},
		Confidence: confidence(seed, 0.6),
	}
}

func carrierLookup(q model.Query, seed uint64) scanner.Output {
	return scanner.Output{
		Data: map[string]interface{}{
			"carrier":   pick(carriers, seed, 0),
			"line_type": []string{"mobile", "landline", "voip"}[seed%3],
			"records": []interface{}{
				map[string]interface{}{"phone": q.Value, "name": fullName(seed)},
			},
		},
		Confidence: confidence(seed, 0.5),
	}
}

func socialProfile(q model.Query, seed uint64) scanner.Output {
	username := q.Value
	if q.Type == model.QueryTypeEmail {
		username = strings.SplitN(q.Value, "@", 2)[0]
	}
	return scanner.Output{
		Data: map[string]interface{}{
			"username": strings.ToLower(username),
			"platform": pick(platforms, seed, 0),
			"name":     fullName(seed),
		},
		Confidence: confidence(seed, 0.4),
	}
}

func peopleSearch(q model.Query, seed uint64) scanner.Output {
	rec := map[string]interface{}{"name": fullName(seed)}
	switch q.Type {
	case model.QueryTypeEmail:
		rec["email"] = strings.ToUpper(q.Value)
		rec["phone"] = phoneFor(seed)
	case model.QueryTypePhone:
		rec["phone"] = q.Value
	case model.QueryTypeName:
		rec["name"] = q.Value
		rec["phone"] = phoneFor(seed)
	}
	return scanner.Output{
		Data:       map[string]interface{}{"records": []interface{}{rec}},
		Confidence: confidence(seed, 0.45),
	}
}
