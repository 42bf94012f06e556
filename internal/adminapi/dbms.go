package adminapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/auctions/internal/domain"
	"github.com/talkincode/auctions/internal/webserver"
)

// DBMSTableInfo represents table metadata
type DBMSTableInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

// DBMSServerInfo describes the database the application runs on
type DBMSServerInfo struct {
	DatabaseType    string `json:"database_type"`
	DatabaseVersion string `json:"database_version"`
	TableCount      int    `json:"table_count"`
	ServerTime      string `json:"server_time"`
}

func registerDbmsRoutes(srv *webserver.Server) {
	srv.ApiGET("/dbms/tables", dbmsListTables, requireSuper)
	srv.ApiGET("/dbms/serverinfo", dbmsGetServerInfo, requireSuper)
}

func tableName(db *gorm.DB, model interface{}) (string, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return "", err
	}
	return stmt.Schema.Table, nil
}

// dbmsListTables returns the row count of every application table
func dbmsListTables(c echo.Context) error {
	db := GetDB(c)
	tables := make([]DBMSTableInfo, 0, len(domain.Tables))
	for _, model := range domain.Tables {
		name, err := tableName(db, model)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "SCHEMA_ERROR", "Failed to read table schema", err.Error())
		}
		var count int64
		if err := db.Table(name).Count(&count).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count rows", err.Error())
		}
		tables = append(tables, DBMSTableInfo{Name: name, RowCount: count})
	}
	return ok(c, tables)
}

func dbmsGetServerInfo(c echo.Context) error {
	db := GetDB(c)
	dbType := db.Dialector.Name()
	info := DBMSServerInfo{
		DatabaseType: dbType,
		TableCount:   len(domain.Tables),
		ServerTime:   time.Now().Format("2006-01-02 15:04:05"),
	}

	var version string
	switch dbType {
	case "postgres":
		db.Raw("SELECT version()").Scan(&version)
	case "sqlite":
		db.Raw("SELECT sqlite_version()").Scan(&version)
		version = "SQLite " + version
	}
	info.DatabaseVersion = version
	return ok(c, info)
}
