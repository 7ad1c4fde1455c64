package domain

import (
	"time"
)

// SysOpr operator account, the acting user of every workflow operation
type SysOpr struct {
	ID        int64     `json:"id,string" form:"id"`
	Username  string    `gorm:"uniqueIndex;size:64" json:"username" form:"username"`
	Password  string    `json:"-" form:"password"`
	Level     string    `json:"level" form:"level"`
	Status    string    `json:"status" form:"status"`
	Remark    string    `json:"remark" form:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysOpr) TableName() string {
	return "sys_opr"
}

// SysOprLog audit trail of workflow events
type SysOprLog struct {
	ID        int64     `json:"id,string"`
	OprID     int64     `gorm:"index" json:"opr_id,string"`
	OptAction string    `gorm:"size:64;index" json:"opt_action"`
	OptDesc   string    `gorm:"type:text" json:"opt_desc"`
	OptTime   time.Time `gorm:"index" json:"opt_time"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}
