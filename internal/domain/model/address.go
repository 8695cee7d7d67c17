package model

import "strings"

// 住所（顧客・注文の配送先に埋め込む）
type Address struct {
	//宛名
	Name string `gorm:"type:varchar(255)" json:"name"`

	//番地など
	Street string `gorm:"type:varchar(255)" json:"street"`

	//郵便番号
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code"`

	//市区町村
	City string `gorm:"type:varchar(255)" json:"city"`

	Country string `gorm:"type:varchar(2)" json:"country"`
}

// 配送に最低限必要な項目があるか
func (a Address) Complete() bool {
	return strings.TrimSpace(a.Name) != "" &&
		strings.TrimSpace(a.Street) != "" &&
		strings.TrimSpace(a.PostalCode) != "" &&
		strings.TrimSpace(a.City) != ""
}
