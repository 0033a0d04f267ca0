package main

import (
	"github.com/unklstewy/navmap-online/pkg/log"
)

// policyDecider answers certificate prompts without user interaction.
type policyDecider struct {
	accept   bool
	remember bool
	lg       *log.Logger
}

func (d policyDecider) Decide(url string, errors []string) (bool, bool) {
	if d.accept {
		d.lg.Warn("Accepting certificate errors", "url", url, "errors", errors)
	} else {
		d.lg.Error("Rejecting certificate errors", "url", url, "errors", errors)
	}
	return d.accept, d.accept && d.remember
}
