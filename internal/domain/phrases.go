package domain

// TriggerPhrase is a single matchable phrase. Disabled phrases are skipped by
// the analyzers without affecting the precedence of the remaining phrases.
type TriggerPhrase struct {
	Text    string `json:"text"`
	Enabled bool   `json:"enabled"`
}

// TriggerPhraseSet holds the two ordered phrase lists the analyzers consume.
// Order defines match precedence for logging only; first match wins.
type TriggerPhraseSet struct {
	AwaitCustomer []TriggerPhrase `json:"await_customer"`
	Resolution    []TriggerPhrase `json:"resolution"`
}

// EnabledAwaitCustomer returns the enabled await-customer phrases in order.
func (s *TriggerPhraseSet) EnabledAwaitCustomer() []string {
	return enabledPhrases(s.AwaitCustomer)
}

// EnabledResolution returns the enabled resolution phrases in order.
func (s *TriggerPhraseSet) EnabledResolution() []string {
	return enabledPhrases(s.Resolution)
}

func enabledPhrases(phrases []TriggerPhrase) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p.Enabled {
			out = append(out, p.Text)
		}
	}
	return out
}

// DefaultTriggerPhrases returns the stock phrase configuration.
func DefaultTriggerPhrases() TriggerPhraseSet {
	return TriggerPhraseSet{
		AwaitCustomer: []TriggerPhrase{
			{Text: "We have escalated this to a specialized support team who will be reaching out to you as soon as possible.", Enabled: true},
			{Text: "could you please provide", Enabled: true},
			{Text: "we need some additional information", Enabled: true},
		},
		Resolution: []TriggerPhrase{
			{Text: "Thanks for your understanding", Enabled: true},
			{Text: "glad we could help", Enabled: true},
			{Text: "marking this as resolved", Enabled: true},
		},
	}
}
