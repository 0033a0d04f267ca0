package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

// facilityFilters is the cycle of the facility filter key. Unknown
// means all facilities.
var facilityFilters = []whazzup.FacilityType{
	whazzup.FacilityUnknown,
	whazzup.FacilityDelivery,
	whazzup.FacilityGround,
	whazzup.FacilityTower,
	whazzup.FacilityApproach,
	whazzup.FacilityDeparture,
	whazzup.FacilityACC,
	whazzup.FacilityFlightInformation,
	whazzup.FacilityObserver,
}

func nextFilter(current whazzup.FacilityType) whazzup.FacilityType {
	for i, f := range facilityFilters {
		if f == current {
			return facilityFilters[(i+1)%len(facilityFilters)]
		}
	}
	return whazzup.FacilityUnknown
}

// filterAtc keeps controllers of the facility whose callsign contains
// search. Observers are only listed by the observer filter.
func filterAtc(atc []whazzup.Client, facility whazzup.FacilityType, search string) []whazzup.Client {
	search = strings.ToUpper(strings.TrimSpace(search))

	var result []whazzup.Client
	for _, c := range atc {
		switch {
		case facility == whazzup.FacilityUnknown && c.Facility == whazzup.FacilityObserver:
			continue
		case facility != whazzup.FacilityUnknown && c.Facility != facility:
			continue
		}
		if search != "" && !strings.Contains(strings.ToUpper(c.Callsign), search) {
			continue
		}
		result = append(result, c)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Callsign < result[j].Callsign
	})
	return result
}

func radiusText(c whazzup.Client) string {
	if c.RadiusNm <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d NM", c.RadiusNm)
}

// onlineFor formats the time since logon as hours and minutes.
func onlineFor(logon, now time.Time) string {
	if logon.IsZero() || now.Before(logon) {
		return "-"
	}
	d := now.Sub(logon).Round(time.Minute)
	return fmt.Sprintf("%d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// atcDetails is the text of the details panel.
func atcDetails(c whazzup.Client, now time.Time) string {
	var s strings.Builder
	fmt.Fprintf(&s, "[yellow]%s[-]\n\n", c.Callsign)
	fmt.Fprintf(&s, "[white]Name:[-]       %s\n", c.Name)
	fmt.Fprintf(&s, "[white]CID:[-]        %s\n", c.CID)
	fmt.Fprintf(&s, "[white]Facility:[-]   %s\n", c.Facility)
	fmt.Fprintf(&s, "[white]Frequency:[-]  %s\n", c.Frequency)
	fmt.Fprintf(&s, "[white]Radius:[-]     %s\n", radiusText(c))
	fmt.Fprintf(&s, "[white]Position:[-]   %.4f %.4f\n", c.Position.Lat, c.Position.Long)
	fmt.Fprintf(&s, "[white]Server:[-]     %s\n", c.Server)
	fmt.Fprintf(&s, "[white]Online:[-]     %s\n", onlineFor(c.LogonTime, now))
	if c.ATIS != "" {
		fmt.Fprintf(&s, "\n[yellow]ATIS[-]\n%s\n", c.ATIS)
	}
	return s.String()
}
