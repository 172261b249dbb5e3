package slots

import (
	"fmt"
	"time"
)

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

var weekdayNames = [...]string{
	"domingo", "segunda-feira", "terça-feira", "quarta-feira",
	"quinta-feira", "sexta-feira", "sábado",
}

// FormatDate renders YYYY-MM-DD as "04 de março de 2025".
// Malformed input is returned unchanged.
func FormatDate(date string) string {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%02d de %s de %d", d.Day(), monthNames[d.Month()-1], d.Year())
}

// FormatDateTime renders "<date> às HH:MM".
func FormatDateTime(date, clock string) string {
	return FormatDate(date) + " às " + clock
}

// FormatShortDate renders "dd/MM (weekday)" for menus.
func FormatShortDate(date string) string {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%02d/%02d (%s)", d.Day(), int(d.Month()), WeekdayName(d.Weekday()))
}

// WeekdayName returns the Portuguese weekday name.
func WeekdayName(w time.Weekday) string {
	return weekdayNames[w]
}

// MonthName returns the Portuguese month name.
func MonthName(m time.Month) string {
	return monthNames[m-1]
}
