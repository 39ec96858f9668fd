// Package window contiene las reglas horarias puras: la ventana de operación diaria y el
// inicio del intervalo de órdenes a consultar.
package window

import "time"

// IsOpen indica si la hora de instant está en [startHour, endHour). instant debe venir ya
// localizado en la zona configurada; start < end se valida en config.
func IsOpen(instant time.Time, startHour, endHour int) bool {
	hour := instant.Hour()
	return startHour <= hour && hour < endHour
}

// Localize pasa instant a loc (UTC si loc es nil).
func Localize(instant time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return instant.In(loc)
}

// FetchStart devuelve "ayer a hour:minute" en loc, tomando como hoy el día de now en loc.
func FetchStart(now time.Time, loc *time.Location, hour, minute int) time.Time {
	local := Localize(now, loc)
	y, m, d := local.Date()
	return time.Date(y, m, d-1, hour, minute, 0, 0, local.Location())
}

// NextOpening devuelve el próximo instante en que la ventana abre. Si ya está abierta,
// devuelve now.
func NextOpening(now time.Time, loc *time.Location, startHour, endHour int) time.Time {
	local := Localize(now, loc)
	if IsOpen(local, startHour, endHour) {
		return local
	}
	y, m, d := local.Date()
	if local.Hour() >= endHour {
		d++
	}
	return time.Date(y, m, d, startHour, 0, 0, 0, local.Location())
}
