package domain

var Tables = []interface{}{
	// System
	&SysOpr{},
	&SysOprLog{},
	// Catalog
	&Product{},
	&DiningTable{},
	// Workflow
	&RegisterSession{},
	&Order{},
	&OrderLine{},
	&StockMovement{},
}
