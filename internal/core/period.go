package core

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start Date
	End   Date
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start.Time) && d.Before(r.End.Time)
}

// MonthBucket pairs a month number with its date range.
type MonthBucket struct {
	Month int
	Range DateRange
}

// MonthRange returns [first day of month, first day of the next month).
// December rolls over into January of the following year.
func MonthRange(year, month int) (DateRange, error) {
	if err := ValidateMonth(month); err != nil {
		return DateRange{}, err
	}
	start := NewDate(year, month, 1)
	end := NewDate(year, month+1, 1)
	if month == 12 {
		end = NewDate(year+1, 1, 1)
	}
	return DateRange{Start: start, End: end}, nil
}

// YearRange returns [Jan 1 of year, Jan 1 of year+1).
func YearRange(year int) DateRange {
	return DateRange{Start: NewDate(year, 1, 1), End: NewDate(year+1, 1, 1)}
}

// MonthBuckets returns the twelve months of year in order.
func MonthBuckets(year int) []MonthBucket {
	buckets := make([]MonthBucket, 0, 12)
	for m := 1; m <= 12; m++ {
		r, _ := MonthRange(year, m)
		buckets = append(buckets, MonthBucket{Month: m, Range: r})
	}
	return buckets
}
