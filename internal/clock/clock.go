package clock

import "time"

// Clock permite inyectar el tiempo en los servicios.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewSystem devuelve un reloj basado en time.Now, localizado en loc (UTC si es nil).
func NewSystem(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Fixed siempre devuelve el mismo instante; Set/Advance lo mueven (tests).
type Fixed struct {
	now time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

func (f *Fixed) Now() time.Time {
	return f.now
}

func (f *Fixed) Set(t time.Time) {
	f.now = t
}

func (f *Fixed) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}
