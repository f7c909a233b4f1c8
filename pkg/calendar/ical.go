package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/klokku/scheduler/pkg/recurrence"
	"github.com/klokku/scheduler/pkg/schedule"
)

const productID = "-//Klokku//Scheduler//EN"

// floating date-time, schedules carry no time zone
const localDateTimeFormat = "20060102T150405"

// ExportICS renders one stored schedule, series included, as an iCalendar object.
func (s *Service) ExportICS(ctx context.Context, id string) (*ical.Calendar, error) {
	sch, err := s.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	return toICalendar(sch, s.clock.Now()), nil
}

func toICalendar(s schedule.Schedule, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, s.ID)
	vevent.Props.SetText(ical.PropSummary, s.Title)
	if s.Description != "" {
		vevent.Props.SetText(ical.PropDescription, s.Description)
	}
	if s.Location != "" {
		vevent.Props.SetText(ical.PropLocation, s.Location)
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	startMinutes, timed := schedule.ParseClock(s.StartTime)
	if s.AllDay || !timed {
		vevent.Props.SetDate(ical.PropDateTimeStart, s.StartDate.Time())
		// DTEND is exclusive for all-day events
		vevent.Props.SetDate(ical.PropDateTimeEnd, s.LastDate().AddDays(1).Time())
	} else {
		vevent.Props.Set(localDateTime(ical.PropDateTimeStart, s.StartDate, startMinutes))
		if endMinutes, ok := schedule.ParseClock(s.EndTime); ok {
			vevent.Props.Set(localDateTime(ical.PropDateTimeEnd, s.LastDate(), endMinutes))
		}
	}

	if rule, ok := s.Rule(); ok {
		option := recurrence.ToROption(rule, s.StartDate)
		vevent.Props.SetRecurrenceRule(&option)
	}

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}

func localDateTime(name string, d schedule.Date, minutes int) *ical.Prop {
	prop := ical.NewProp(name)
	t := d.Time().Add(time.Duration(minutes) * time.Minute)
	prop.Value = t.Format(localDateTimeFormat)
	return prop
}

// icsFileName is the attachment name used when downloading a schedule.
func icsFileName(id string) string {
	return fmt.Sprintf("schedule-%s.ics", id)
}
