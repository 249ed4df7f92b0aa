package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"tubequeue/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	YouTube     YouTube     `json:"youtube"`
	Jukebox     Jukebox     `json:"jukebox"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	Logger      Logger      `json:"logger"`
}

type App struct {
	Port           int      `json:"port"`
	SecretKey      string   `json:"secretKey"`
	TLSEnabled     bool     `json:"tlsEnabled"`
	TLSCertFile    string   `json:"tlsCertFile"`
	TLSKeyFile     string   `json:"tlsKeyFile"`
	AllowedOrigins []string `json:"allowedOrigins"`
	// PostLoginRedirect, when set, makes the OAuth callback redirect the
	// browser there with the session token in the fragment instead of
	// answering JSON.
	PostLoginRedirect string `json:"postLoginRedirect"`
}

// Database.Vendor selects the credential/activation store: mongo (default), postgres or mssql.
type Database struct {
	Vendor string `json:"vendor"`
	Psql   Db     `json:"psql"`
	Mongo  Db     `json:"mongo"`
	Mssql  Db     `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	Username string `json:"username"`
	DB       int    `json:"db"`
}

type YouTube struct {
	APIKey       string   `json:"apiKey"`
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
	// Endpoint overrides the YouTube API base URL (tests, proxies).
	Endpoint string `json:"endpoint"`
}

// Jukebox tunes the token lifecycle and the guest surface.
type Jukebox struct {
	RefreshBufferSeconds   int     `json:"refreshBufferSeconds"`
	UpstreamTimeoutSeconds int     `json:"upstreamTimeoutSeconds"`
	SearchDefaultResults   int64   `json:"searchDefaultResults"`
	SearchMaxResults       int64   `json:"searchMaxResults"`
	SearchCacheTTLSeconds  int     `json:"searchCacheTTLSeconds"`
	PlaylistMaxResults     int64   `json:"playlistMaxResults"`
	QueueStore             string  `json:"queueStore"` // redis | mongo
	GuestRateLimit         float64 `json:"guestRateLimit"`
	GuestRateBurst         int     `json:"guestRateBurst"`
	SessionTTLHours        int     `json:"sessionTTLHours"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace        string `json:"namespace"`
	ConnectionString string `json:"connectionString"`
	Queue            string `json:"queue"`
}

type Logger struct {
	Level string `json:"level"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initRedis(&C)
	initApp(&C)
	initJukebox(&C)
	logger.SetLevel(C.Logger.Level)
	// Prefer https redirect URIs locally when TLS enabled
	if C.App.TLSEnabled && C.YouTube.RedirectURI != "" && !hasHTTPS(C.YouTube.RedirectURI) {
		C.YouTube.RedirectURI = toHTTPSCallback(C.YouTube.RedirectURI)
	}
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if v := os.Getenv("DB_VENDOR"); v != "" {
		C.Database.Vendor = v
	}
	C.Database.Vendor = strings.ToLower(C.Database.Vendor)
	if C.Database.Vendor == "" {
		C.Database.Vendor = "mongo"
	}

	fillDb(&C.Database.Mongo, "MONGO", Db{Name: "tubequeue", Host: "localhost", Port: "27017"})
	fillDb(&C.Database.Psql, "DB", Db{Name: "tubequeue", Host: "localhost", Port: "5432", User: "postgres"})
	// Local SQL Server container defaults; production must provide MSSQL_* variables.
	fillDb(&C.Database.Mssql, "MSSQL", Db{Name: "tubequeue", Host: "localhost", Port: "1433", User: "sa"})

	logger.GetLogger().WithFields(map[string]interface{}{
		"vendor":    C.Database.Vendor,
		"mongoHost": C.Database.Mongo.Host,
		"psqlHost":  C.Database.Psql.Host,
		"mssqlHost": C.Database.Mssql.Host,
	}).Info("Database configuration")
}

// fillDb applies PREFIX_NAME/HOST/PORT/USER/PASSWORD env overrides, then defaults.
func fillDb(db *Db, prefix string, def Db) {
	db.Name = firstNonEmpty(os.Getenv(prefix+"_NAME"), db.Name, def.Name)
	db.Host = firstNonEmpty(os.Getenv(prefix+"_HOST"), db.Host, def.Host)
	db.Port = firstNonEmpty(os.Getenv(prefix+"_PORT"), db.Port, def.Port)
	db.User = firstNonEmpty(os.Getenv(prefix+"_USER"), db.User, def.User)
	db.Password = firstNonEmpty(os.Getenv(prefix+"_PASSWORD"), db.Password, def.Password)
}

func initRedis(C *Config) {
	C.RedisClient.Host = firstNonEmpty(os.Getenv("REDIS_HOST"), C.RedisClient.Host, "localhost")
	C.RedisClient.Port = firstNonEmpty(os.Getenv("REDIS_PORT"), C.RedisClient.Port, "6379")
	C.RedisClient.Username = firstNonEmpty(os.Getenv("REDIS_USERNAME"), C.RedisClient.Username)
	C.RedisClient.Password = firstNonEmpty(os.Getenv("REDIS_PASSWORD"), C.RedisClient.Password)
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil && db >= 0 {
			C.RedisClient.DB = db
		}
	}
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 9002
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 9002
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	C.App.TLSCertFile = firstNonEmpty(C.App.TLSCertFile, os.Getenv("TLS_CERT_FILE"))
	C.App.TLSKeyFile = firstNonEmpty(C.App.TLSKeyFile, os.Getenv("TLS_KEY_FILE"))
	if C.App.TLSEnabled {
		if C.App.TLSCertFile == "" {
			if _, err := os.Stat("certs/localhost.crt"); err == nil {
				C.App.TLSCertFile = "certs/localhost.crt"
			}
		}
		if C.App.TLSKeyFile == "" {
			if _, err := os.Stat("certs/localhost.key"); err == nil {
				C.App.TLSKeyFile = "certs/localhost.key"
			}
		}
		logger.GetLogger().WithFields(map[string]interface{}{"cert": C.App.TLSCertFile, "key": C.App.TLSKeyFile}).Info("TLS enabled via configuration")
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		C.App.AllowedOrigins = strings.Split(v, ",")
	}
	if len(C.App.AllowedOrigins) == 0 {
		C.App.AllowedOrigins = []string{"http://localhost:9002", "http://localhost:3000"}
	}
	C.App.PostLoginRedirect = firstNonEmpty(os.Getenv("POST_LOGIN_REDIRECT"), C.App.PostLoginRedirect)
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; host sessions cannot be issued. Provide SECRET_KEY via environment.")
	}
}

func initJukebox(C *Config) {
	j := &C.Jukebox
	if j.RefreshBufferSeconds <= 0 {
		j.RefreshBufferSeconds = 300
	}
	if j.UpstreamTimeoutSeconds <= 0 {
		j.UpstreamTimeoutSeconds = 10
	}
	if j.SearchDefaultResults <= 0 {
		j.SearchDefaultResults = 8
	}
	if j.SearchMaxResults <= 0 {
		j.SearchMaxResults = 25
	}
	if j.SearchCacheTTLSeconds <= 0 {
		j.SearchCacheTTLSeconds = 600
	}
	if j.PlaylistMaxResults <= 0 {
		j.PlaylistMaxResults = 50
	}
	j.QueueStore = strings.ToLower(firstNonEmpty(os.Getenv("QUEUE_STORE"), j.QueueStore, "redis"))
	if j.GuestRateLimit <= 0 {
		j.GuestRateLimit = 1
	}
	if j.GuestRateBurst <= 0 {
		j.GuestRateBurst = 3
	}
	if j.SessionTTLHours <= 0 {
		j.SessionTTLHours = 12
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// helpers to coerce local callback to https
func hasHTTPS(u string) bool { return strings.HasPrefix(u, "https://") }
func toHTTPSCallback(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
