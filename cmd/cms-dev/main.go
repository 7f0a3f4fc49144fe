// cms-dev, vitrini gerçek bir CMS olmadan çalıştırmak için bellek içi CMS sunar.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"drog/internal/cmsfake"
	"drog/internal/logger"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	port := flag.Int("port", 1337, "listen port")
	token := flag.String("token", envOr("CMS_API_TOKEN", "dev-token"), "API token accepted for editor endpoints")
	adminEmail := flag.String("admin-email", envOr("CMS_ADMIN_EMAIL", "admin@drog.local"), "seeded admin e-mail")
	adminPass := flag.String("admin-password", envOr("CMS_ADMIN_PASSWORD", "admin123"), "seeded admin password")
	seed := flag.Bool("seed", true, "load sample categories and products")
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)
	appLog := logger.New(envOr("DROG_LOG_LEVEL", "info"), "text")

	fake := cmsfake.New(*token, appLog.With("component", "cmsfake"))
	if *seed {
		fake.Seed()
	}
	if _, err := fake.AddUser(*adminEmail, "admin", *adminPass, "Admin"); err != nil {
		log.Fatalf("Admin kullanıcısı oluşturulamadı: %v", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           fake.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	appLog.Info("cms-dev listening", "addr", srv.Addr, "admin", *adminEmail)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("CMS sunucusu başlatılamadı: %v", err)
	}
}
