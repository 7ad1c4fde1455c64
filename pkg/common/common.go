package common

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
	NA       = "N/A"
)

var idNode *snowflake.Node

func init() {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	idNode = node
}

// UUIDint64 returns a time ordered unique id suitable for primary keys
func UUIDint64() int64 {
	return idNode.Generate().Int64()
}

// IfEmptyStr returns defval when src is blank
func IfEmptyStr(src string, defval string) string {
	if strings.TrimSpace(src) == "" {
		return defval
	}
	return src
}
