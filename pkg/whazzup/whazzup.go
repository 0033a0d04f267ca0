package whazzup

import "fmt"

// Parse reads a whazzup document of any format. Transceivers are only
// used by VATSIM JSON and may be nil.
func Parse(text string, format Format, transceivers map[string][]Transceiver) (*Whazzup, error) {
	switch format {
	case VATSIM, IVAO:
		return ParseText(text, format)
	case VATSIMJSON3:
		return ParseVATSIMJSON(text, transceivers)
	case IVAOJSON2:
		return ParseIVAOJSON(text)
	default:
		return nil, fmt.Errorf("unsupported whazzup format %s", format)
	}
}
