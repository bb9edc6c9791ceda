package semantic

import "strings"

// hintRules maps column-name fragments to interpretive hint text appended
// before embedding. Short technical names ("cust_id") embed poorly on their
// own; the hints pull them toward the concept they denote.
var hintRules = []struct {
	fragments []string
	hint      string
}{
	{[]string{"id", "key", "code"}, "identifier primary key"},
	{[]string{"date", "time", "created", "updated", "timestamp"}, "timestamp datetime"},
	{[]string{"name", "title", "label"}, "name text label"},
	{[]string{"customer", "user", "client", "member", "person"}, "person account profile"},
	{[]string{"price", "cost", "amount", "total", "revenue", "salary", "payment"}, "money financial value"},
	{[]string{"count", "quantity", "qty", "num"}, "quantity count number"},
	{[]string{"status", "state", "flag", "active"}, "status state condition"},
	{[]string{"rating", "score", "rank"}, "rating score evaluation"},
	{[]string{"email", "phone", "address", "contact"}, "contact information"},
}

// EnhanceColumnName rewrites a column name into text that embeds well:
// underscores become spaces and recognized fragments gain interpretive
// hints. The rewrite is deterministic - the same name always produces the
// same text, which keeps the embedding cache effective.
func EnhanceColumnName(name string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")

	var hints []string
	for _, rule := range hintRules {
		for _, frag := range rule.fragments {
			if containsToken(base, frag) {
				hints = append(hints, rule.hint)
				break
			}
		}
	}

	if len(hints) == 0 {
		return base
	}
	return base + " " + strings.Join(hints, " ")
}

// containsToken reports whether any whitespace-separated token of text
// equals or contains the fragment. Short fragments ("id", "qty") only match
// as a whole token or suffix, so "id" fires on "orderid" but not "idle".
func containsToken(text, fragment string) bool {
	for _, token := range strings.Fields(text) {
		if token == fragment {
			return true
		}
		if len(fragment) >= 4 && strings.Contains(token, fragment) {
			return true
		}
		// Short fragments only match as suffix ("orderid", "userid").
		if len(fragment) < 4 && strings.HasSuffix(token, fragment) {
			return true
		}
	}
	return false
}
