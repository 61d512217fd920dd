// Package market reports whether a symbol's exchange is in session.
package market

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
	log "github.com/sirupsen/logrus"
)

// DefaultMIC is used for symbols without a known exchange suffix.
const DefaultMIC = "xnys"

// suffixMIC maps Yahoo exchange suffixes to ISO 10383 MICs.
var suffixMIC = map[string]string{
	".L":  "xlon",
	".PA": "xpar",
	".DE": "xfra",
	".AS": "xams",
	".BR": "xbru",
	".MI": "xmil",
	".MC": "xmad",
	".ST": "xsto",
	".CO": "xcse",
	".HE": "xhel",
	".VI": "xwbo",
	".SW": "xswx",
	".TO": "xtse",
	".V":  "xtsx",
	".T":  "xtks",
	".HK": "xhkg",
	".AX": "xasx",
	".KS": "xkrx",
	".TW": "xtai",
	".SS": "xshg",
	".SZ": "xshe",
}

// Session states.
const (
	StateOpen       = "open"
	StateClosed     = "closed"
	StateAlwaysOpen = "24/7"
)

type Session struct {
	MIC   string `json:"mic,omitempty"`
	State string `json:"state"`
}

func (s Session) Open() bool { return s.State != StateClosed }

// Calendar answers session questions for one exchange. When the exchange
// calendar cannot be loaded it falls back to Mon-Fri 09:30-16:00 in Location.
type Calendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Location *time.Location
}

// MIC returns the exchange code for symbol, or "" for instruments that trade
// around the clock.
func MIC(symbol string) string {
	s := strings.ToUpper(symbol)
	if strings.HasSuffix(s, "-USD") || strings.HasSuffix(s, "=X") {
		return ""
	}
	if i := strings.LastIndexByte(s, '.'); i > 0 {
		if mic, ok := suffixMIC[s[i:]]; ok {
			return mic
		}
	}
	return DefaultMIC
}

// CalendarFor loads the calendar for mic, falling back to NYSE and then to
// fixed New York hours.
func CalendarFor(mic string) *Calendar {
	cal := calendar.GetCalendar(mic)
	if cal == nil && mic != DefaultMIC {
		log.WithField("mic", mic).Debug("no calendar for exchange, using NYSE")
		mic = DefaultMIC
		cal = calendar.GetCalendar(mic)
	}
	if cal == nil {
		log.WithField("mic", mic).Warn("exchange calendar unavailable, using Mon-Fri 09:30-16:00 New York")
		return &Calendar{MIC: mic, Fallback: true, Location: newYork()}
	}
	return &Calendar{MIC: mic, Calendar: cal, Location: cal.Loc}
}

func newYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Calendar) IsTradingDay(t time.Time) bool {
	if c.Location != nil {
		t = t.In(c.Location)
	}
	if c.Fallback {
		wd := t.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return c.Calendar.IsBusinessDay(t)
}

func (c *Calendar) IsOpen(t time.Time) bool {
	if c.Location != nil {
		t = t.In(c.Location)
	}
	if c.Fallback {
		if !c.IsTradingDay(t) {
			return false
		}
		minutes := t.Hour()*60 + t.Minute()
		return minutes >= 9*60+30 && minutes < 16*60
	}
	return c.Calendar.IsOpen(t)
}

// SessionAt reports the session state of symbol's exchange at t.
func SessionAt(symbol string, t time.Time) Session {
	mic := MIC(symbol)
	if mic == "" {
		return Session{State: StateAlwaysOpen}
	}
	cal := CalendarFor(mic)
	if cal.IsOpen(t) {
		return Session{MIC: cal.MIC, State: StateOpen}
	}
	return Session{MIC: cal.MIC, State: StateClosed}
}
