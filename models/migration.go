package models

import (
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/config"
	"github.com/saporidipanesicilia-arch/agenzie-funebri-app/utils"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Agency{},
		&MarginSettings{},
		&TimelineStep{},
		&Deceased{},
		&Funeral{},
		&FuneralTimeline{},
		&Product{},
		&DocumentType{},
		&Document{},
		&Quote{},
		&QuoteItem{},
		&Cemetery{},
		&Grave{},
		&Concession{},
	)
	utils.ErrorPanic(err)
}
