// Package templates holds the HTML pages, embedded into the binary.
package templates

import (
	"embed"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/canteenkart/utils"
	"gorm.io/datatypes"
)

//go:embed *.html
var files embed.FS

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case datatypes.Date:
		return time.Time(t), true
	}
	return time.Time{}, false
}

func layout(format string) func(interface{}) string {
	return func(v interface{}) string {
		t, ok := asTime(v)
		if !ok {
			return "-"
		}
		return t.Format(format)
	}
}

func Funcs() template.FuncMap {
	return template.FuncMap{
		"money":    utils.FormatCurrency,
		"datetime": layout("02 Jan 2006 15:04"),
		"date":     layout("02 Jan 2006"),
		"clock":    layout("15:04"),
		"upper":    strings.ToUpper,
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + strings.ReplaceAll(s[1:], "_", " ")
		},
		"percent": func(rate float64) string {
			return decimal.NewFromFloat(rate).Shift(2).String() + "%"
		},
		"average": func(total float64, count int) float64 {
			if count == 0 {
				return 0
			}
			return utils.RoundMoney(total / float64(count))
		},
		"rating": func(r *float64) string {
			if r == nil {
				return "-"
			}
			return strconv.FormatFloat(*r, 'f', 1, 64)
		},
		"ratings": func() []int { return []int{5, 4, 3, 2, 1} },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"statusClass": func(status string) string {
			switch status {
			case "pending":
				return "badge-wait"
			case "preparing":
				return "badge-busy"
			case "ready":
				return "badge-ready"
			case "completed":
				return "badge-done"
			}
			return "badge-off"
		},
	}
}

// Load parses every page with the shared helpers.
func Load() (*template.Template, error) {
	return template.New("").Funcs(Funcs()).ParseFS(files, "*.html")
}
