package common

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Configurations exported
type Configurations struct {
	Server   ServerConfigurations
	Bridge   BridgeConfigurations
	Chain    ChainConfigurations
	Fees     FeeConfigurations
	Payout   PayoutConfigurations
	Wallet   WalletConfigurations
	LogLevel string
}

// ServerConfigurations exported
type ServerConfigurations struct {
	Port string
}

// BridgeConfigurations exported
type BridgeConfigurations struct {
	ApiUrl        string
	IntegratorId  string
	RouteCacheTTL int // seconds, advisory route-support cache
	QuoteCacheTTL int // seconds, must stay well under quote fill deadlines
}

// ChainConfigurations exported
type ChainConfigurations struct {
	ChainId            int64
	DepositGasLimit    uint64
	ReceiptWaitSeconds int
	EntryPoint         string
}

// FeeConfigurations exported
type FeeConfigurations struct {
	Rate float64 // platform fee taken on-chain by the router, recorded for history
}

// PayoutConfigurations exported
type PayoutConfigurations struct {
	Currency          string
	MinDeadlineWindow int // seconds a permit deadline must remain valid
}

// WalletConfigurations exported
type WalletConfigurations struct {
	// Preference is evaluated in order once per session. The original
	// frontends disagreed on precedence; it is an explicit choice here.
	Preference []string
}

var ServiceConfigurations Configurations = defaultConfigurations()

func defaultConfigurations() Configurations {
	return Configurations{
		Server: ServerConfigurations{Port: "8080"},
		Bridge: BridgeConfigurations{RouteCacheTTL: 300, QuoteCacheTTL: 30},
		Chain: ChainConfigurations{
			ChainId:            8453,
			DepositGasLimit:    4 * 21000,
			ReceiptWaitSeconds: 90,
			EntryPoint:         "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789",
		},
		Fees:     FeeConfigurations{Rate: 0.015},
		Payout:   PayoutConfigurations{Currency: "usd", MinDeadlineWindow: 60},
		Wallet:   WalletConfigurations{Preference: []string{WalletEmbedded, WalletConnected}},
		LogLevel: "info",
	}
}

// LoadConfig reads config_dev.yaml or config_prod.yaml into
// ServiceConfigurations. Called once from main.
func LoadConfig() Configurations {
	var configName string
	if GloabalENVVars.WorkingEnvironment == "development" {
		configName = "dev"
	} else if GloabalENVVars.WorkingEnvironment == "production" {
		configName = "prod"
	} else {
		log.Panic("Envioronment Configuration Not Valid")
	}
	// Set the file name of the configurations file
	viper.SetConfigName("config_" + configName)

	// Set the path to look for the configurations file
	viper.AddConfigPath(".")

	// Enable VIPER to read Environment Variables
	viper.AutomaticEnv()

	viper.SetConfigType("yaml")

	configuration := defaultConfigurations()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file, %s", err)
	}

	err := viper.Unmarshal(&configuration)
	if err != nil {
		fmt.Printf("Unable to decode into struct, %v", err)
	}

	ServiceConfigurations = configuration

	return configuration
}

// LoadENVVars reads every required environment variable once so missing
// configuration fails at startup instead of mid-request. Called from main.
func LoadENVVars() *ENVConfigs {
	getOrFatal := func(envVarName string) string {
		variable, ok := os.LookupEnv(envVarName)
		if !ok {
			log.Fatal("missing environment variable: ", envVarName)
		}
		return variable
	}
	getOrEmpty := func(envVarName string) string {
		return os.Getenv(envVarName)
	}

	env := ENVConfigs{}
	env.WorkingEnvironment = getOrFatal(WorkingEnvironment)
	env.MongoDbConnectionString = getOrFatal(MongoDbConnectionString)
	env.MongoDatabase = getOrFatal(MongoDatabase)
	env.UsersCollection = getOrFatal(UsersCollection)
	env.TransactionsCollection = getOrFatal(TransactionsCollection)
	env.GinMode = getOrFatal(GinMode)
	env.RedisHost = getOrFatal(RedisHost)
	env.RedisPort = getOrFatal(RedisPort)
	env.ChainRPCURL = getOrFatal(ChainRPCURL)
	env.StripeSecretKey = getOrFatal(StripeSecretKey)
	env.AppBaseURL = getOrFatal(AppBaseURL)
	env.BundlerRPCURL = getOrEmpty(BundlerRPCURL)
	env.PaymasterPolicyID = getOrEmpty(PaymasterPolicyID)
	env.CustodySignerKey = getOrEmpty(CustodySignerKey)

	GloabalENVVars = &env

	return &env
}
