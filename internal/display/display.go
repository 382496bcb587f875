// Package display turns a lookup report into the strings a weather card shows.
// It performs no network I/O and no classification of its own.
package display

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	_ "time/tzdata" // zone names must resolve on hosts without a zoneinfo database

	"github.com/kjstillabower/city-weather/internal/models"
	"github.com/kjstillabower/city-weather/internal/service"
	"github.com/kjstillabower/city-weather/internal/validation"
)

const (
	timeLayout = "03:04 PM"
	dateLayout = "Mon, 02 Jan 2006"

	// NoValue is shown in place of an absent air quality index.
	NoValue = "--"
	// NoValueColor colors NoValue.
	NoValueColor = "#CCCCCC"
	// Unavailable is the air quality status when no source produced an index.
	Unavailable = "Data unavailable"
	// UnavailableColor colors Unavailable.
	UnavailableColor = "#999999"
)

// Card is the fully formatted content of one weather card.
type Card struct {
	Place       string `json:"place"`
	Time        string `json:"time"`
	Date        string `json:"date"`
	Temperature string `json:"temperature"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	IconColor   string `json:"iconColor"`
	Wind        string `json:"wind"`
	Humidity    string `json:"humidity"`
	Pressure    string `json:"pressure"`

	AQIValue      string `json:"aqiValue"`
	AQIValueColor string `json:"aqiValueColor"`
	AQIStatus     string `json:"aqiStatus"`
	AQIColor      string `json:"aqiColor"`
	AQIBackground string `json:"aqiBackground,omitempty"`
}

// Render formats report. The clock fields use the location's timezone when it
// is known, otherwise the process local zone. Equal reports render equal cards.
func Render(report models.Report) Card {
	at := report.QueriedAt.In(zone(report.Location.Timezone))

	c := Card{
		Place:       place(report.Location),
		Time:        at.Format(timeLayout),
		Date:        at.Format(dateLayout),
		Temperature: fmt.Sprintf("%.1f°C", report.Conditions.Temperature),
		Description: report.Condition.Description,
		Icon:        report.Condition.Icon,
		IconColor:   report.Condition.Color,
		Wind:        fmt.Sprintf("%.1f m/s", report.Conditions.WindSpeed),
		Humidity:    fmt.Sprintf("%d%%", report.Conditions.Humidity),
		Pressure:    fmt.Sprintf("%.0f hPa", report.Conditions.PressureMSL),
	}

	aq := report.AirQuality
	if aq == nil {
		c.AQIValue = NoValue
		c.AQIValueColor = NoValueColor
		c.AQIStatus = Unavailable
		c.AQIColor = UnavailableColor
		return c
	}
	c.AQIValue = strconv.Itoa(aq.Index)
	c.AQIValueColor = aq.Category.Color
	c.AQIColor = aq.Category.Color
	c.AQIBackground = aq.Category.Background
	c.AQIStatus = aq.Category.Label
	if aq.PM25 != nil {
		c.AQIStatus = fmt.Sprintf("%s • PM2.5: %.1fμg/m³", aq.Category.Label, *aq.PM25)
	}
	return c
}

func place(loc models.Location) string {
	if loc.Country == "" {
		return loc.Name
	}
	return loc.Name + ", " + loc.Country
}

func zone(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// WriteCard writes c as a plain text card.
func WriteCard(w io.Writer, c Card) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", c.Place)
	fmt.Fprintf(&b, "%s  %s\n\n", c.Time, c.Date)
	fmt.Fprintf(&b, "%s  %s  %s\n\n", c.Icon, c.Temperature, c.Description)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Wind\t%s\n", c.Wind)
	fmt.Fprintf(tw, "Humidity\t%s\n", c.Humidity)
	fmt.Fprintf(tw, "Pressure\t%s\n", c.Pressure)
	fmt.Fprintf(tw, "Air Quality\t%s\t%s\n", c.AQIValue, c.AQIStatus)
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Notice is a user-facing failure message.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Notice titles.
const (
	TitleInputError = "Input Error"
	TitleError      = "Error"
)

// NoticeFor maps a lookup error to the message shown to the user.
func NoticeFor(err error) Notice {
	var re *service.RetrievalError
	switch {
	case errors.Is(err, validation.ErrCityEmpty):
		return Notice{Title: TitleInputError, Message: "Please enter a city name."}
	case errors.Is(err, validation.ErrCityTooLong):
		return Notice{Title: TitleInputError, Message: "City name is too long."}
	case errors.Is(err, validation.ErrCityControlChars):
		return Notice{Title: TitleInputError, Message: "City name contains unprintable characters."}
	case errors.Is(err, service.ErrInvalidCity):
		return Notice{Title: TitleInputError, Message: "City name is not valid."}
	case errors.Is(err, service.ErrCityNotFound):
		return Notice{Title: TitleError, Message: "City not found. Please try another name."}
	case errors.As(err, &re):
		return Notice{Title: TitleError, Message: "Could not get weather data.\n" + re.Err.Error()}
	default:
		return Notice{Title: TitleError, Message: "Could not get weather data.\n" + err.Error()}
	}
}

// WriteNotice writes n as plain text.
func WriteNotice(w io.Writer, n Notice) error {
	_, err := fmt.Fprintf(w, "%s: %s\n", n.Title, n.Message)
	return err
}
