package whazzup

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

const legacyWhazzup = `; comment
!GENERAL:
VERSION = 8
RELOAD = 2
UPDATE = 20240315123000
CONNECTED CLIENTS = 3
!CLIENTS:
DLH123:1234567:Hans Meier EDDF:PILOT::50.0333:8.5706:1200:150:A320:450:EDDF:FL350:KJFK:GERMANY:100:1:2000:::1:I:1200:0:8:30:10:0:EGLL:/v/:DCT:0:0:0:0:::20240315110000:270:29.92:1013:
EDDF_TWR:7654321:Some Body:ATC:119.900:50.0333:8.5706:0:0::::::GERMANY:100:5::4:50::::::::::::::::Frankfurt Tower^§Information Alpha:20240315120000:20240315100000:0:::
EDDF_OBS:111:Watcher:ATC:199.998:50.0:8.5:0:0::::::GERMANY:100:1::0:0::::::::::::::::::20240315100000:0:::
broken:line
!SERVERS:
GERMANY:fsd.example.org:Frankfurt:Germany Server:1:
!VOICE SERVERS:
voice.example.org:Frankfurt:Voice Frankfurt:1:R:
`

// TestParseFormat tests configuration format names.
func TestParseFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
		json bool
	}{
		{"vatsim", VATSIM, false},
		{"vatsim_json", VATSIMJSON3, true},
		{"ivao", IVAO, false},
		{"ivao_json", IVAOJSON2, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name)
		if err != nil {
			t.Fatalf("ParseFormat(%q) returned error %v", tt.name, err)
		}
		if got != tt.want || got.IsJSON() != tt.json {
			t.Errorf("ParseFormat(%q) = %v json=%v", tt.name, got, got.IsJSON())
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

// TestFacilityMapping tests numeric and IVAO position mappings.
func TestFacilityMapping(t *testing.T) {
	if FacilityFromCode(4) != FacilityTower || FacilityFromCode(6) != FacilityACC || FacilityFromCode(42) != FacilityUnknown {
		t.Error("Unexpected numeric facility mapping")
	}
	if FacilityFromIVAO("app") != FacilityApproach || FacilityFromIVAO("DEP") != FacilityDeparture || FacilityFromIVAO("XYZ") != FacilityUnknown {
		t.Error("Unexpected IVAO facility mapping")
	}
	if len(AllFacilityTypes()) != 9 {
		t.Errorf("Expected 9 facility types, got %d", len(AllFacilityTypes()))
	}
}

// TestParseStatus tests the text and JSON status documents.
func TestParseStatus(t *testing.T) {
	t.Run("Text with json3 sets JSON", func(t *testing.T) {
		st, err := ParseStatus("msg0=Welcome\nurl0=http://a/whazzup.txt\njson3=http://a/data.json\nurl1=http://a/servers.txt\n")
		if err != nil {
			t.Fatal(err)
		}
		if !st.JSON || st.WhazzupURL != "http://a/data.json" {
			t.Errorf("Expected JSON whazzup, got %+v", st)
		}
		if st.Message != "Welcome" {
			t.Errorf("Expected message, got %q", st.Message)
		}
		if st.VoiceURL != "http://a/servers.txt" {
			t.Errorf("Expected server list URL, got %q", st.VoiceURL)
		}
	})

	t.Run("Text with url0 only", func(t *testing.T) {
		st, err := ParseStatus("url0=http://a/whazzup.txt\r\nurl0=http://b/whazzup.txt\r\n")
		if err != nil {
			t.Fatal(err)
		}
		if st.JSON || st.WhazzupGzipped {
			t.Errorf("Expected plain text whazzup, got %+v", st)
		}
		if st.WhazzupURL != "http://a/whazzup.txt" {
			t.Errorf("Expected first URL, got %q", st.WhazzupURL)
		}
		if st.Message != "" {
			t.Errorf("Expected no message, got %q", st.Message)
		}
	})

	t.Run("Text with gzurl0", func(t *testing.T) {
		st, _ := ParseStatus("gzurl0=http://a/whazzup.txt.gz\nvoice0=http://a/voice.txt\n")
		if !st.WhazzupGzipped || st.WhazzupURL != "http://a/whazzup.txt.gz" {
			t.Errorf("Expected gzipped whazzup, got %+v", st)
		}
		if st.VoiceURL != "http://a/voice.txt" {
			t.Errorf("Expected voice URL, got %q", st.VoiceURL)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		st, err := ParseStatus(`{"data":{"v3":["https://data/v3.json"],"transceivers":["https://data/t.json"],"servers":["https://data/s.json"]}}`)
		if err != nil {
			t.Fatal(err)
		}
		if !st.JSON || st.WhazzupURL != "https://data/v3.json" || st.TransceiverURL != "https://data/t.json" {
			t.Errorf("Unexpected status %+v", st)
		}
	})

	t.Run("Broken JSON", func(t *testing.T) {
		if _, err := ParseStatus(`{"data":`); err == nil {
			t.Error("Expected error for broken JSON")
		}
	})
}

// TestParseText tests the legacy whazzup format.
func TestParseText(t *testing.T) {
	w, err := ParseText(legacyWhazzup, VATSIM)
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}

	if w.ReloadMinutes != 2 {
		t.Errorf("Expected reload 2, got %d", w.ReloadMinutes)
	}
	want := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	if !w.Updated.Equal(want) || w.Updated.Location() != time.UTC {
		t.Errorf("Expected update %v, got %v", want, w.Updated)
	}
	if len(w.Clients) != 3 {
		t.Fatalf("Expected 3 clients, got %d", len(w.Clients))
	}

	pilot := w.Clients[0]
	if pilot.Callsign != "DLH123" || pilot.Kind != Pilot {
		t.Errorf("Unexpected pilot %+v", pilot)
	}
	if math.Abs(pilot.Position.Lat-50.0333) > 1e-6 || pilot.AltitudeFt != 1200 || pilot.GroundSpeedKts != 150 {
		t.Errorf("Unexpected pilot position %+v", pilot)
	}
	if pilot.Departure != "EDDF" || pilot.Destination != "KJFK" || pilot.Heading != 270 {
		t.Errorf("Unexpected flight plan fields %+v", pilot)
	}

	tower := w.Clients[1]
	if tower.Kind != ATC || tower.Facility != FacilityTower || tower.VisualRangeNm != 50 {
		t.Errorf("Unexpected tower %+v", tower)
	}
	if tower.ATIS != "Frankfurt Tower\nInformation Alpha" {
		t.Errorf("Unexpected ATIS %q", tower.ATIS)
	}

	if w.Clients[2].Kind != Observer || w.Clients[2].Facility != FacilityObserver {
		t.Errorf("Expected observer, got %+v", w.Clients[2])
	}

	if len(w.Servers) != 2 || w.Servers[0].Ident != "GERMANY" || !w.Servers[1].Voice {
		t.Errorf("Unexpected servers %+v", w.Servers)
	}

	t.Run("Missing UPDATE", func(t *testing.T) {
		if _, err := ParseText("!GENERAL:\nRELOAD = 1\n", VATSIM); err == nil {
			t.Error("Expected error without UPDATE")
		}
	})

	t.Run("JSON format rejected", func(t *testing.T) {
		if _, err := ParseText(legacyWhazzup, VATSIMJSON3); err == nil {
			t.Error("Expected error for JSON format")
		}
	})
}

// TestParseServers tests server list documents.
func TestParseServers(t *testing.T) {
	servers := ParseServers(legacyWhazzup)
	if len(servers) != 2 {
		t.Fatalf("Expected 2 servers, got %d", len(servers))
	}
	if servers[1].Host != "voice.example.org" || servers[1].Location != "Frankfurt" {
		t.Errorf("Unexpected voice server %+v", servers[1])
	}
}

// TestParseVATSIMJSON tests the JSON v3 format with transceiver positions.
func TestParseVATSIMJSON(t *testing.T) {
	transceivers, err := ParseTransceivers(`[
		{"callsign":"EDDF_TWR","transceivers":[
			{"id":0,"frequency":119900000,"latDeg":50.0,"lonDeg":8.0,"heightMslM":100},
			{"id":1,"frequency":119900000,"latDeg":50.2,"lonDeg":8.2,"heightMslM":100}]},
		{"callsign":"DLH123","transceivers":[]}
	]`)
	if err != nil {
		t.Fatalf("ParseTransceivers failed: %v", err)
	}
	if len(transceivers["EDDF_TWR"]) != 2 {
		t.Fatalf("Expected 2 transceivers, got %d", len(transceivers["EDDF_TWR"]))
	}

	doc := `{
		"general": {"version": 3, "reload": 1, "update": "20240315123000", "update_timestamp": "2024-03-15T12:30:00.123Z"},
		"pilots": [{"cid": 1234567, "name": "Hans", "callsign": "DLH123", "server": "GERMANY",
			"latitude": 50.03, "longitude": 8.57, "altitude": 1200, "groundspeed": 150, "heading": 270,
			"transponder": "2000", "logon_time": "2024-03-15T11:00:00Z",
			"flight_plan": {"aircraft_short": "A320", "departure": "EDDF", "arrival": "KJFK", "route": "DCT"}}],
		"controllers": [
			{"cid": 7654321, "name": "Some Body", "callsign": "EDDF_TWR", "frequency": "119.900", "facility": 4,
			 "visual_range": 50, "text_atis": ["Line 1", "Line 2"], "logon_time": "2024-03-15T10:00:00Z"},
			{"cid": 1, "callsign": "NOWHERE_CTR", "facility": 6}],
		"atis": [],
		"servers": [{"ident": "GERMANY", "hostname_or_ip": "fsd.example.org", "location": "Frankfurt", "name": "Germany"}]
	}`

	w, err := ParseVATSIMJSON(doc, transceivers)
	if err != nil {
		t.Fatalf("ParseVATSIMJSON failed: %v", err)
	}
	if w.ReloadMinutes != 1 {
		t.Errorf("Expected reload 1, got %d", w.ReloadMinutes)
	}
	if w.Updated.Nanosecond() != 123000000 {
		t.Errorf("Expected sub second precision, got %v", w.Updated)
	}
	if len(w.Clients) != 2 {
		t.Fatalf("Expected pilot and positioned controller, got %d clients", len(w.Clients))
	}
	if w.Clients[0].AircraftType != "A320" || w.Clients[0].CID != "1234567" {
		t.Errorf("Unexpected pilot %+v", w.Clients[0])
	}
	tower := w.Clients[1]
	if math.Abs(tower.Position.Lat-50.1) > 1e-9 || math.Abs(tower.Position.Long-8.1) > 1e-9 {
		t.Errorf("Expected average transceiver position, got %v", tower.Position)
	}
	if tower.ATIS != "Line 1\nLine 2" || tower.Facility != FacilityTower {
		t.Errorf("Unexpected controller %+v", tower)
	}
	if len(w.Servers) != 1 || w.Servers[0].Host != "fsd.example.org" {
		t.Errorf("Unexpected servers %+v", w.Servers)
	}
}

// TestParseIVAOJSON tests the IVAO JSON v2 format.
func TestParseIVAOJSON(t *testing.T) {
	doc := `{
		"updatedAt": "2024-03-15T12:30:00Z",
		"servers": [{"id": "DE1", "hostname": "de1.example.org", "description": "Germany 1", "countryId": "DE"}],
		"voiceServers": [{"id": "V1", "hostname": "v1.example.org", "description": "Voice 1", "countryId": "DE"}],
		"clients": {
			"pilots": [{"userId": 111, "callsign": "AFR12", "serverId": "DE1", "createdAt": "2024-03-15T11:00:00Z",
				"lastTrack": {"altitude": 35000, "groundSpeed": 450, "heading": 90, "latitude": 48.0, "longitude": 2.0, "transponder": 1000},
				"flightPlan": {"departureId": "LFPG", "arrivalId": "EDDF", "aircraftId": "A321"}}],
			"atcs": [{"userId": 222, "callsign": "LFPG_APP", "lastTrack": {"latitude": 49.0, "longitude": 2.5},
				"atcSession": {"frequency": 121.15, "position": "APP"}, "atis": {"lines": ["A", "B"]}},
				{"userId": 223, "callsign": "NOTRACK_TWR"}],
			"observers": [{"userId": 333, "callsign": "XX_OBS", "lastTrack": {"latitude": 1.0, "longitude": 1.0}}]
		}
	}`

	w, err := ParseIVAOJSON(doc)
	if err != nil {
		t.Fatalf("ParseIVAOJSON failed: %v", err)
	}
	if len(w.Clients) != 3 {
		t.Fatalf("Expected 3 clients, got %d", len(w.Clients))
	}
	if w.Clients[0].Transponder != "1000" || w.Clients[0].AltitudeFt != 35000 || w.Clients[0].AircraftType != "A321" {
		t.Errorf("Unexpected pilot %+v", w.Clients[0])
	}
	if w.Clients[1].Facility != FacilityApproach || w.Clients[1].Frequency != "121.150" || w.Clients[1].ATIS != "A\nB" {
		t.Errorf("Unexpected controller %+v", w.Clients[1])
	}
	if w.Clients[2].Kind != Observer {
		t.Errorf("Expected observer, got %+v", w.Clients[2])
	}
	if len(w.Servers) != 2 || !w.Servers[1].Voice {
		t.Errorf("Unexpected servers %+v", w.Servers)
	}

	if _, err := ParseIVAOJSON(`{"clients": {}}`); err == nil {
		t.Error("Expected error without updatedAt")
	}
}

// TestDecode tests gzip detection and character set conversion.
func TestDecode(t *testing.T) {
	t.Run("Windows-1252", func(t *testing.T) {
		got, err := Decode([]byte{'M', 0xfc, 'l', 'l', 'e', 'r'}, false)
		if err != nil {
			t.Fatal(err)
		}
		if got != "Müller" {
			t.Errorf("Expected Müller, got %q", got)
		}
	})

	t.Run("UTF-8 with BOM", func(t *testing.T) {
		got, _ := Decode([]byte("\xef\xbb\xbfMüller"), true)
		if got != "Müller" {
			t.Errorf("Expected Müller, got %q", got)
		}
	})

	t.Run("Gzip", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		zw.Write([]byte(legacyWhazzup))
		zw.Close()

		if !IsGzip(buf.Bytes()) {
			t.Fatal("Expected gzip magic")
		}
		got, err := Decode(buf.Bytes(), false)
		if err != nil {
			t.Fatal(err)
		}
		if got != legacyWhazzup {
			t.Error("Decompressed text differs")
		}
	})

	t.Run("Broken gzip", func(t *testing.T) {
		if _, err := Decode([]byte{0x1f, 0x8b, 0x00}, true); err == nil {
			t.Error("Expected error for truncated gzip")
		}
	})
}

// TestParseDispatch tests format dispatch.
func TestParseDispatch(t *testing.T) {
	if _, err := Parse(legacyWhazzup, IVAO, nil); err != nil {
		t.Errorf("Expected IVAO text to parse, got %v", err)
	}
	if _, err := Parse("", Unknown, nil); err == nil {
		t.Error("Expected error for unknown format")
	}
}
