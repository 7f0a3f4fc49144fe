package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"drog/internal/cms"
	"drog/internal/config"
	"drog/internal/handlers"
	"drog/internal/logger"
	"drog/internal/services"
	"drog/internal/storage"
)

// generateSelfSignedCert, yerel HTTPS için self-signed sertifika üretir.
func generateSelfSignedCert() (tls.Certificate, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			Organization: []string{"Drog"},
			Country:      []string{"EG"},
			Locality:     []string{"Cairo"},
		},
		NotBefore:   time.Now(),
		NotAfter:    time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:    x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:    []string{"localhost", "*.localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
	return tls.X509KeyPair(certPEM, keyPEM)
}

// openBackend, ayardaki sürücüye göre kalıcı depoyu açar.
func openBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, func() error, error) {
	switch cfg.Driver {
	case config.StorageRedis:
		rb, err := storage.NewRedisBackend(ctx, cfg.RedisURL, cfg.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return rb, rb.Close, nil
	case config.StorageMemory:
		return storage.NewMemoryBackend(), func() error { return nil }, nil
	default:
		fb, err := storage.NewFileBackend(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return fb, func() error { return nil }, nil
	}
}

func main() {
	configPath := flag.String("config", os.Getenv("DROG_CONFIG"), "path to a .yaml or .json config file")
	port := flag.Int("port", 0, "override the HTTP port")
	flag.Parse()

	var opts []config.Option
	if *port != 0 {
		opts = append(opts, config.WithPort(*port))
	}
	cfg, err := config.Load(*configPath, opts...)
	if err != nil {
		log.Fatalf("Ayarlar yüklenemedi: %v", err)
	}

	appLog := logger.New(cfg.Log.Level, cfg.Log.Format)
	gin.SetMode(cfg.Server.Mode)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Depo başlatılamadı: %v", err)
	}
	defer func() {
		if err := closeBackend(); err != nil {
			appLog.Warn("storage close failed", "error", err)
		}
	}()
	bridge := storage.NewBridge(backend, cfg.Storage.Timeout, appLog.With("component", "storage"))

	security, err := services.NewSecurityLogger(cfg.Security.LogFile)
	if err != nil {
		appLog.Warn("security log disabled", "path", cfg.Security.LogFile, "error", err)
	}
	defer security.Close()

	client := cms.New(cfg.CMS.BaseURL, cfg.CMS.APIToken, cfg.CMS.Timeout, appLog.With("component", "cms"))
	coupons := services.NewCouponStore(bridge, appLog.With("component", "coupons"))
	mailer := services.NewEmailService(cfg.Mail, cfg.Shop, appLog.With("component", "email"))

	admin := services.NewAdminStore(client, appLog.With("component", "admin"))
	if err := admin.Load(ctx); err != nil {
		// CMS sonradan açılabilir; panel /admin/refetch ile yeniden yükler.
		appLog.Warn("initial admin load incomplete", "error", err)
	}

	visitors := services.NewVisitors(services.VisitorDeps{
		Bridge:          bridge,
		Shipping:        services.NewShippingPolicy(cfg.Shop),
		Orders:          client,
		Catalog:         client,
		Coupons:         coupons,
		Mailer:          mailer,
		Auth:            client,
		AdminRole:       cfg.Shop.AdminRole,
		DefaultLanguage: cfg.Shop.DefaultLanguage,
		Security:        security,
		Spam:            services.NewSpamDetector(),
		Log:             appLog.With("component", "visitors"),
		IdleTTL:         cfg.Server.VisitorIdleTTL,
		MaxVisitors:     cfg.Server.MaxVisitors,
	})
	go visitors.Run(ctx, time.Minute)

	h := handlers.NewHandler(client, visitors, admin, coupons, security, handlers.Options{
		CookieSecure:    cfg.Server.CookieSecure,
		DefaultLanguage: cfg.Shop.DefaultLanguage,
		Currency:        cfg.Shop.Currency,
	}, appLog.With("component", "http"))

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Fatalf("Proxy ayarı geçersiz: %v", err)
	}
	h.Register(r)

	handler := otelhttp.NewHandler(r, "drog-web")
	servers := buildServers(cfg.Server, handler, appLog)

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		srv := srv
		go func() {
			appLog.Info("server listening", "addr", srv.Addr, "tls", srv.TLSConfig != nil)
			var err error
			if srv.TLSConfig != nil {
				err = srv.ListenAndServeTLS("", "")
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s: %w", srv.Addr, err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		appLog.Info("shutting down")
	case err := <-errCh:
		appLog.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLog.Warn("shutdown failed", "addr", srv.Addr, "error", err)
		}
	}
}

// buildServers, TLS ayarı yoksa yalnızca HTTP; varsa HTTPS ve HTTPS'e yönlendiren HTTP sunucusu kurar.
func buildServers(cfg config.ServerConfig, handler http.Handler, appLog logger.Logger) []*http.Server {
	httpAddr := fmt.Sprintf(":%d", cfg.Port)
	plain := &http.Server{Addr: httpAddr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	var cert tls.Certificate
	var err error
	switch {
	case cfg.TLSCertFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
	case cfg.TLSSelfSigned:
		cert, err = generateSelfSignedCert()
	default:
		return []*http.Server{plain}
	}
	if err != nil {
		appLog.Error("TLS certificate unavailable, serving HTTP only", "error", err)
		return []*http.Server{plain}
	}

	tlsPort := cfg.TLSPort
	secure := &http.Server{
		Addr:              fmt.Sprintf(":%d", tlsPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12},
	}
	redirect := &http.Server{
		Addr:              httpAddr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.Host)
			if err != nil {
				host = r.Host
			}
			target := fmt.Sprintf("https://%s:%d%s", host, tlsPort, r.URL.Path)
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
		}),
	}
	return []*http.Server{secure, redirect}
}
