package main

import (
	"net/http"

	"flowform/account"
	"flowform/bizerror"
	"flowform/client/es"
	"flowform/client/s3"
	"flowform/domain/field"
	"flowform/domain/process"
	"flowform/domain/table"
	"flowform/domain/template"
	"flowform/event"
	"flowform/indices"
	"flowform/indices/indexlog"
	"flowform/indices/search"
	"flowform/infra/tracing"
	"flowform/persistence"
	"flowform/servehttp"
	"flowform/session"
	"flowform/sessions"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.Infoln("service start")

	tracingCloser, err := tracing.Bootstrap()
	if err != nil {
		logrus.Fatalf("tracing bootstrap failed %v\n", err)
	}
	defer tracingCloser.Close()

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse database config failed %v\n", err)
	}
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			logrus.Fatalf("failed to prepare database %v\n", err)
		}
	}

	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		logrus.Fatalf("database connection failed %v\n", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	err = ds.GormDB().AutoMigrate(
		&account.User{},
		&field.DynamicField{},
		&table.DynamicTable{},
		&table.TableEntry{},
		&template.TaskTemplate{},
		&template.WorkflowTemplate{},
		&process.WorkflowInstance{},
		&process.Task{},
		&event.EventRecord{},
		&indexlog.IndexLogRecord{},
	).Error
	if err != nil {
		logrus.Fatalf("database migration failed %v\n", err)
	}

	if err := account.DefaultSecurityConfiguration(); err != nil {
		logrus.Fatalf("default security configuration failed %v\n", err)
	}

	s3.Bootstrap()
	es.ActiveESClient = es.CreateClientFromEnv()
	event.EventHandlers = append(event.EventHandlers, indices.TaskIndexEventHandle)
	indices.StartCron()

	engine := gin.New()
	engine.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/"), gin.Recovery())
	engine.Use(tracing.TracingIngress(), bizerror.ErrorHandling())

	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "flowform")
	})

	sessions.RegisterSessionsHandler(engine)
	sessions.RegisterSessionHandler(engine, session.SimpleAuthFilter())

	auth := session.SimpleAuthFilter()
	account.RegisterUsersRestAPI(engine, auth)
	field.RegisterFieldsRestAPI(engine, auth)
	table.RegisterTablesRestAPI(engine, auth)
	table.RegisterEntriesRestAPI(engine, auth)
	template.RegisterTaskTemplatesRestAPI(engine, auth)
	template.RegisterWorkflowTemplatesRestAPI(engine, auth)
	process.RegisterInstancesRestAPI(engine, auth)
	process.RegisterTasksRestAPI(engine, auth)
	indices.RegisterIndicesRestAPI(engine, auth, session.AdminFilter())
	search.RegisterTaskSearchRestAPI(engine, auth)

	servehttp.StartHTTPServer(engine)
}
