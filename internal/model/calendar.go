package model

import (
	"sort"
	"time"
)

// Study はカレンダーを束ねるスタディグループを表す。
type Study struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Status    Status    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Calendar はスタディグループの予定を表す。
// UserIDは予定の作成者。参加者はCalendarAttendeeとして別テーブルで管理する。
type Calendar struct {
	ID        int64     `db:"id"`
	StudyID   int64     `db:"study_id"`
	UserID    int64     `db:"user_id"`
	Title     string    `db:"title"`
	Contents  string    `db:"contents"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`
	Alarm     bool      `db:"alarm"`
	Online    bool      `db:"online"`
	Status    Status    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CalendarFields はカレンダーの作成・更新で指定可能な項目。
type CalendarFields struct {
	Title     string
	Contents  string
	StartDate time.Time
	EndDate   time.Time
	StartTime time.Time
	EndTime   time.Time
	Alarm     bool
	Online    bool
}

// NewCalendar はStatusActiveのカレンダーを生成する。
func NewCalendar(studyID, userID int64, f CalendarFields) *Calendar {
	c := &Calendar{
		StudyID: studyID,
		UserID:  userID,
		Status:  StatusActive,
	}
	c.apply(f)
	return c
}

// Update は編集可能な項目を上書きする。StatusとStudyIDは変更しない。
func (c *Calendar) Update(f CalendarFields) {
	c.apply(f)
}

func (c *Calendar) apply(f CalendarFields) {
	c.Title = f.Title
	c.Contents = f.Contents
	c.StartDate = f.StartDate
	c.EndDate = f.EndDate
	c.StartTime = f.StartTime
	c.EndTime = f.EndTime
	c.Alarm = f.Alarm
	c.Online = f.Online
}

// Deactivate はカレンダーを無効化する（論理削除）。
func (c *Calendar) Deactivate() {
	c.Status = StatusInactive
}

// Activate はカレンダーを再有効化する。
func (c *Calendar) Activate() {
	c.Status = StatusActive
}

// Result は参加者を含むレスポンスに変換する。
func (c *Calendar) Result(attendees []int64) *CalendarResponse {
	ids := append([]int64(nil), attendees...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if ids == nil {
		ids = []int64{}
	}
	return &CalendarResponse{
		ID:        c.ID,
		StudyID:   c.StudyID,
		UserID:    c.UserID,
		Title:     c.Title,
		Contents:  c.Contents,
		StartDate: c.StartDate,
		EndDate:   c.EndDate,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		Attends:   ids,
		Alarm:     c.Alarm,
		Online:    c.Online,
		Status:    c.Status,
	}
}

// CalendarResponse はカレンダーのAPIレスポンス。
type CalendarResponse struct {
	ID        int64     `json:"id"`
	StudyID   int64     `json:"studyId"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Contents  string    `json:"contents"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Attends   []int64   `json:"attends"`
	Alarm     bool      `json:"alarm"`
	Online    bool      `json:"online"`
	Status    Status    `json:"status"`
}
