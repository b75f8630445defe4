package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	"github.com/hb9tf/fbcut/export"
)

var (
	listen   = flag.String("listen", ":8443", "")
	certFile = flag.String("certFile", "", "Path of the file containing the certificate (including the chained intermediates and root) for the TLS connection.")
	keyFile  = flag.String("keyFile", "", "Path of the file containing the key for the TLS connection.")
	output   = flag.String("output", "sqlite", "Storage to use (one of: sqlite, mysql)")

	// SQLite
	sqliteFile = flag.String("sqliteFile", "/tmp/fbcut", "File path of the sqlite DB file to use.")

	// MySQL
	mysqlServer       = flag.String("mysqlServer", "127.0.0.1:3306", "MySQL TCP server endpoint to connect to (IP/DNS and port).")
	mysqlUser         = flag.String("mysqlUser", "", "MySQL DB user.")
	mysqlPasswordFile = flag.String("mysqlPasswordFile", "", "Path to the file containing the password for the MySQL user.")
	mysqlDBName       = flag.String("mysqlDBName", "fbcut", "Name of the DB to use.")
)

const (
	defaultListLimit = 100
	maxListLimit     = 10000
)

type catalog interface {
	Insert(ctx context.Context, r export.Record) error
	List(ctx context.Context, limit int) ([]export.Record, error)
	Get(ctx context.Context, id string) (export.Record, error)
}

type CatalogServer struct {
	catalog catalog
}

func (s *CatalogServer) collectHandler(c *gin.Context) {
	records := []export.Record{}
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	for _, r := range records {
		if r.ID == "" || r.OutFile == "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "records need an id and an outFile"})
			return
		}
	}
	// Records are stored before responding so they are listed right away.
	for i, r := range records {
		if err := s.catalog.Insert(c.Request.Context(), r); err != nil {
			glog.Warningf("unable to store record %q: %s\n", r.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error(), "recordCount": i})
			return
		}
	}
	c.JSON(http.StatusOK, export.CollectResponse{Status: "ok", RecordCount: len(records)})
}

func (s *CatalogServer) listHandler(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l <= 0 || l > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "limit must be between 1 and 10000"})
			return
		}
		limit = l
	}
	records, err := s.catalog.List(c.Request.Context(), limit)
	if err != nil {
		glog.Warningf("unable to list records: %s\n", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *CatalogServer) getHandler(c *gin.Context) {
	r, err := s.catalog.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, export.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": err.Error()})
	case err != nil:
		glog.Warningf("unable to get record %q: %s\n", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
	default:
		c.JSON(http.StatusOK, r)
	}
}

func (s *CatalogServer) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/"+export.CollectEndpoint, s.collectHandler)
	r.GET("/fbcut/v1/cuts", s.listHandler)
	r.GET("/fbcut/v1/cuts/:id", s.getHandler)
	return r
}

func main() {
	ctx := context.Background()
	// Set defaults for glog flags. Can be overridden via cmdline.
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "WARNING")
	flag.Set("v", "1")
	// Parse flags globally.
	flag.Parse()
	gin.SetMode(gin.ReleaseMode)

	// Storage setup
	var db *sql.DB
	var err error
	switch strings.ToLower(*output) {
	case "sqlite":
		db, err = export.OpenSQLite(*sqliteFile)
	case "mysql":
		db, err = export.OpenMySQL(*mysqlServer, *mysqlUser, *mysqlPasswordFile, *mysqlDBName)
	default:
		glog.Exitf("%q is not a supported storage, pick one of: sqlite, mysql", *output)
	}
	if err != nil {
		glog.Exit(err)
	}
	store := &export.SQL{DB: db}
	defer store.Close()
	if err := store.CreateTableIfNotExists(ctx); err != nil {
		glog.Exitf("unable to create table: %s", err)
	}

	// Configure and run webserver.
	s := CatalogServer{
		catalog: store,
	}
	server := &http.Server{
		Addr:    *listen,
		Handler: s.router(),
	}
	if *certFile != "" || *keyFile != "" {
		glog.Fatal(server.ListenAndServeTLS(*certFile, *keyFile))
	} else {
		glog.Infoln("Resorting to serving HTTP because there was no certificate and key defined.")
		glog.Fatal(server.ListenAndServe())
	}

	glog.Flush()
}
