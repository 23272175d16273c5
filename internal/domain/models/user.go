package models

import "time"

// User представляет пользователя из таблицы users
type User struct {
	ID               int64
	Email            string
	PassHash         string
	Nickname         *string // NULL, если никнейм не задан
	VerificationCode string
	IsVerified       bool
	Balance          float64
	ResetCode        *string
	ResetCodeExpires *time.Time
}

// NicknameOrNil возвращает никнейм либо nil
func (u *User) NicknameOrNil() *string {
	if u.Nickname == nil || *u.Nickname == "" {
		return nil
	}
	return u.Nickname
}
