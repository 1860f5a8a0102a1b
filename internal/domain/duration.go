package domain

import "fmt"

// DurationClass length of the adaptation period in days
type DurationClass int

const (
	DurationUnknown        DurationClass = 0
	DurationTwentyOneDay   DurationClass = 21
	DurationTwentyEightDay DurationClass = 28
)

// Days number of days in the adaptation period
func (d DurationClass) Days() int {
	return int(d)
}

func (d DurationClass) Valid() bool {
	return d == DurationTwentyOneDay || d == DurationTwentyEightDay
}

func (d DurationClass) String() string {
	switch d {
	case DurationTwentyOneDay:
		return "21-day"
	case DurationTwentyEightDay:
		return "28-day"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// ScheduleType catalog key of a schedule program
type ScheduleType string

const (
	ScheduleMonophasic ScheduleType = "monophasic"
	ScheduleBiphasic   ScheduleType = "biphasic"
	ScheduleSiesta     ScheduleType = "siesta"
	ScheduleSegmented  ScheduleType = "segmented"
	ScheduleTriphasic  ScheduleType = "triphasic"
	ScheduleEverymanE1 ScheduleType = "everyman_e1"
	ScheduleEverymanE2 ScheduleType = "everyman_e2"
	ScheduleEverymanE3 ScheduleType = "everyman_e3"
	ScheduleEverymanE4 ScheduleType = "everyman_e4"
	ScheduleDualCore1  ScheduleType = "dual_core_1"
	ScheduleDualCore2  ScheduleType = "dual_core_2"
	ScheduleUberman    ScheduleType = "uberman"
	ScheduleDymaxion   ScheduleType = "dymaxion"
	ScheduleTesla      ScheduleType = "tesla"
	ScheduleCustom     ScheduleType = "custom"
)

// durationPolicy adaptation length per schedule type.
// Nap-only programs get the extra week; anything missing here is 21-day.
var durationPolicy = map[ScheduleType]DurationClass{
	ScheduleMonophasic: DurationTwentyOneDay,
	ScheduleBiphasic:   DurationTwentyOneDay,
	ScheduleSiesta:     DurationTwentyOneDay,
	ScheduleSegmented:  DurationTwentyOneDay,
	ScheduleTriphasic:  DurationTwentyOneDay,
	ScheduleEverymanE1: DurationTwentyOneDay,
	ScheduleEverymanE2: DurationTwentyOneDay,
	ScheduleEverymanE3: DurationTwentyOneDay,
	ScheduleEverymanE4: DurationTwentyOneDay,
	ScheduleDualCore1:  DurationTwentyOneDay,
	ScheduleDualCore2:  DurationTwentyOneDay,
	ScheduleUberman:    DurationTwentyEightDay,
	ScheduleDymaxion:   DurationTwentyEightDay,
	ScheduleTesla:      DurationTwentyEightDay,
	ScheduleCustom:     DurationTwentyOneDay,
}

// DurationClassFor looks up the policy table.
func DurationClassFor(t ScheduleType) DurationClass {
	if d, ok := durationPolicy[t]; ok {
		return d
	}
	return DurationTwentyOneDay
}

// KnownScheduleType reports whether t is in the policy table.
func KnownScheduleType(t ScheduleType) bool {
	_, ok := durationPolicy[t]
	return ok
}
