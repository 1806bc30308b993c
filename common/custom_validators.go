package common

import (
	"os"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

func validateEthAddress(fl validator.FieldLevel) bool {
	return ethcommon.IsHexAddress(fl.Field().String())
}

func validatePositiveAmount(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.IsPositive()
}

func SetupCustomValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("eth_addr", validateEthAddress); err != nil {
			ForceExit("Failed to init eth_addr validator")
		}
		if err := v.RegisterValidation("positive_amount", validatePositiveAmount); err != nil {
			ForceExit("Failed to init positive_amount validator")
		}
	}
}

func ForceExit(v interface{}) {
	log.Error(v)
	os.Exit(1)
}
