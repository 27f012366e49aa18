package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"

	"github.com/totegamma/crtv-studio"
)

type Config struct {
	Server   Server             `yaml:"server"`
	Livepeer Livepeer           `yaml:"livepeer"`
	Speech   Speech             `yaml:"speech"`
	Chain    Chain              `yaml:"chain"`
	Storage  Storage            `yaml:"storage"`
	Orbis    Orbis              `yaml:"orbis"`
	Paywall  crtv.PaywallConfig `yaml:"paywall"`
	Upload   Upload             `yaml:"upload"`
}

type Server struct {
	Listen        string   `yaml:"listen"`
	FQDN          string   `yaml:"fqdn"`
	PostgresDsn   string   `yaml:"postgresDsn"`
	RedisAddr     string   `yaml:"redisAddr"`
	RedisPassword string   `yaml:"redisPassword"`
	RedisDB       int      `yaml:"redisDB"`
	MemcachedAddr string   `yaml:"memcachedAddr"`
	EnableTrace   bool     `yaml:"enableTrace"`
	TraceEndpoint string   `yaml:"traceEndpoint"`
	AllowOrigins  []string `yaml:"allowOrigins"`
	LogLevel      string   `yaml:"logLevel"`
}

type Livepeer struct {
	APIURL     string `yaml:"apiUrl"`
	GatewayURL string `yaml:"gatewayUrl"`
	APIKey     string `yaml:"apiKey"`
	WebhookID  string `yaml:"webhookId"`
	AudioModel string `yaml:"audioModel"`
	LLMModel   string `yaml:"llmModel"`
	ImageModel string `yaml:"imageModel"`
}

type Speech struct {
	Provider     string `yaml:"provider"` // livepeer, gcp
	LanguageCode string `yaml:"languageCode"`
}

type Chain struct {
	RPCURL        string `yaml:"rpcUrl"`
	ChainID       int64  `yaml:"chainId"`
	TokenContract string `yaml:"tokenContract"`
	PrivateKey    string `yaml:"privateKey"`
}

type Storage struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"accessKey"`
	SecretKey     string `yaml:"secretKey"`
	Bucket        string `yaml:"bucket"`
	UseSSL        bool   `yaml:"useSSL"`
	PublicBaseURL string `yaml:"publicBaseUrl"`
}

type Orbis struct {
	Models   Models `yaml:"models"`
	Contexts Models `yaml:"contexts"`
}

type Models struct {
	AssetMetadata            string `yaml:"assetMetadata"`
	VideoTokenMetadata       string `yaml:"videoTokenMetadata"`
	VideoTokenSimpleProperty string `yaml:"videoTokenSimpleProperty"`
	CreatorProfile           string `yaml:"creatorProfile"`
}

func (m Models) lookup(model string) string {
	switch model {
	case crtv.ModelAssetMetadata:
		return m.AssetMetadata
	case crtv.ModelVideoTokenMetadata:
		return m.VideoTokenMetadata
	case crtv.ModelVideoTokenSimpleProperty:
		return m.VideoTokenSimpleProperty
	case crtv.ModelCreatorProfile:
		return m.CreatorProfile
	}
	return ""
}

// Scope returns the configured model id and context id of an entity model.
func (o Orbis) Scope(model string) (string, string) {
	return o.Models.lookup(model), o.Contexts.lookup(model)
}

type Upload struct {
	TranslateTo    []string `yaml:"translateTo"`
	SourceLanguage string   `yaml:"sourceLanguage"`
	Transcribe     bool     `yaml:"transcribe"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	err = godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	config.applyEnv()

	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}
	if config.Speech.Provider == "" {
		config.Speech.Provider = "livepeer"
	}
	if config.Upload.SourceLanguage == "" {
		config.Upload.SourceLanguage = "en"
	}

	return config, nil
}

// secrets are kept out of the yaml file
func (c *Config) applyEnv() {
	override(&c.Livepeer.APIKey, "LIVEPEER_API_KEY")
	override(&c.Livepeer.WebhookID, "LIVEPEER_WEBHOOK_ID")
	override(&c.Chain.PrivateKey, "CHAIN_PRIVATE_KEY")
	override(&c.Chain.RPCURL, "CHAIN_RPC_URL")
	override(&c.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	override(&c.Storage.SecretKey, "STORAGE_SECRET_KEY")
	override(&c.Server.PostgresDsn, "POSTGRES_DSN")
	override(&c.Server.RedisPassword, "REDIS_PASSWORD")

	if v := os.Getenv("CHAIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			c.Chain.ChainID = id
		}
	}
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
