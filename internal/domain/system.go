package domain

import (
	"time"
)

const (
	LevelSuper = "super"
	LevelUser  = "user"
)

// User account; Password holds a bcrypt hash
type User struct {
	ID        int64     `json:"id,string" form:"id"`
	Username  string    `gorm:"uniqueIndex;size:150" json:"username" form:"username"`
	Email     string    `gorm:"size:254" json:"email" form:"email"`
	Password  string    `json:"-" form:"password"`
	Level     string    `gorm:"size:16" json:"level" form:"level"`
	Status    string    `gorm:"size:16" json:"status" form:"status"`
	LastLogin time.Time `json:"last_login" form:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (User) TableName() string {
	return "auction_user"
}

func (u *User) IsSuper() bool {
	return u != nil && u.Level == LevelSuper
}

func (u *User) String() string {
	if u == nil {
		return ""
	}
	return u.Username
}

// OprLog audit trail of user actions
type OprLog struct {
	ID        int64     `json:"id,string"`
	OprName   string    `gorm:"index" json:"opr_name"`
	OprIp     string    `json:"opr_ip"`
	OptAction string    `json:"opt_action"`
	OptDesc   string    `json:"opt_desc"`
	OptTime   time.Time `gorm:"index" json:"opt_time"`
}

// TableName Specify table name
func (OprLog) TableName() string {
	return "sys_opr_log"
}
