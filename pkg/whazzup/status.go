package whazzup

import (
	"encoding/json"
	"fmt"
	"strings"
)

// statusJSON is the layout of the VATSIM status.json document.
type statusJSON struct {
	Data struct {
		V3           []string `json:"v3"`
		Transceivers []string `json:"transceivers"`
		Servers      []string `json:"servers"`
		ServersSweat []string `json:"servers_sweatbox"`
	} `json:"data"`
	Message string `json:"message"`
}

// ParseStatus reads a status document. Documents starting with a brace are
// read as JSON, everything else as key=value lines.
//
// In the text format msg0 carries a message, json3 the JSON whazzup,
// gzurl0 a gzipped and url0 a plain text whazzup, voice0 and url1 the
// server lists. The first URL per key is used and json3 wins over the
// text variants.
func ParseStatus(text string) (Status, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		return parseStatusJSON(trimmed)
	}
	return parseStatusText(trimmed), nil
}

func parseStatusJSON(text string) (Status, error) {
	var doc statusJSON
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return Status{}, fmt.Errorf("failed to parse status JSON: %w", err)
	}

	st := Status{Message: doc.Message}
	if len(doc.Data.V3) > 0 {
		st.WhazzupURL = doc.Data.V3[0]
		st.JSON = true
	}
	if len(doc.Data.Transceivers) > 0 {
		st.TransceiverURL = doc.Data.Transceivers[0]
	}
	if len(doc.Data.Servers) > 0 {
		st.VoiceURL = doc.Data.Servers[0]
	}
	return st, nil
}

func parseStatusText(text string) Status {
	values := make(map[string]string)
	var messages []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if key == "msg0" {
			messages = append(messages, value)
			continue
		}
		if _, seen := values[key]; !seen {
			values[key] = value
		}
	}

	st := Status{Message: strings.Join(messages, "\n")}
	switch {
	case values["json3"] != "":
		st.WhazzupURL = values["json3"]
		st.JSON = true
	case values["gzurl0"] != "":
		st.WhazzupURL = values["gzurl0"]
		st.WhazzupGzipped = true
	default:
		st.WhazzupURL = values["url0"]
	}

	st.VoiceURL = values["voice0"]
	if st.VoiceURL == "" {
		st.VoiceURL = values["url1"]
	}
	return st
}
