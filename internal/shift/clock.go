package shift

import (
	"fmt"
	"time"
)

// Clock 维护模拟时间、班次边界以及前一天累计的加班时长
// 只由调度协调器的推进操作修改
type Clock struct {
	now       time.Time
	startHour int
	endHour   int
	overtime  time.Duration
}

// NewClock 创建班次时钟，要求 0 <= start < end <= 24
func NewClock(now time.Time, startHour, endHour int) (*Clock, error) {
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return nil, fmt.Errorf("invalid shift %02d:00-%02d:00", startHour, endHour)
	}
	return &Clock{now: now, startHour: startHour, endHour: endHour}, nil
}

func (c *Clock) Now() time.Time { return c.now }

// Overtime 返回上一个工作日的加班时长，永不为负
func (c *Clock) Overtime() time.Duration { return c.overtime }

// Advance 将模拟时间向前推进 d
func (c *Clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ShiftStart 返回 day 所在日期的班次开始时间
func (c *Clock) ShiftStart(day time.Time) time.Time {
	return midnight(day).Add(time.Duration(c.startHour) * time.Hour)
}

// ShiftEnd 返回 day 所在日期的班次结束时间
func (c *Clock) ShiftEnd(day time.Time) time.Time {
	return midnight(day).Add(time.Duration(c.endHour) * time.Hour)
}

// ShiftDay 返回 t 所属的工作日：班次开始前（凌晨）仍算作前一天的延长
func (c *Clock) ShiftDay(t time.Time) time.Time {
	day := midnight(t)
	if t.Before(c.ShiftStart(day)) {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// BeforeShift 判断当前时间是否早于当天日历上的班次开始
func (c *Clock) BeforeShift() bool {
	return c.now.Before(c.ShiftStart(c.now))
}

// WindowEnd 返回今天可用的工作截止时间：班次结束减去昨天的加班
func (c *Clock) WindowEnd() time.Time {
	return c.ShiftEnd(c.ShiftDay(c.now)).Add(-c.overtime)
}

// NextShiftStart 返回下一个工作日的班次开始时间
func (c *Clock) NextShiftStart() time.Time {
	return c.ShiftStart(c.ShiftDay(c.now).AddDate(0, 0, 1))
}

// UntilMidnight 返回距离下一个午夜的时长
func (c *Clock) UntilMidnight() time.Duration {
	return midnight(c.now).AddDate(0, 0, 1).Sub(c.now)
}

// Slack 返回在不越过下一个班次开始（留 1 分钟）的前提下还能推进的时长
// pending 是链上订单预计完成时间距当前的剩余时长
func (c *Clock) Slack(pending time.Duration) time.Duration {
	return c.UntilMidnight() + time.Duration(c.startHour)*time.Hour - time.Minute - pending
}

// Rollover 结束当前工作日：记录越过班次结束的加班时长（不小于 0），
// 并把时间拨到下一个班次开始。返回结束的工作日和记录的加班
func (c *Clock) Rollover() (day time.Time, overtime time.Duration) {
	day = c.ShiftDay(c.now)
	c.overtime = max(0, c.now.Sub(c.ShiftEnd(day)))
	c.now = c.NextShiftStart()
	return day, c.overtime
}
