package main

import (
	"context"

	"finco/conversions/common"
	"finco/conversions/gateways"
	"finco/conversions/operations"
	"finco/conversions/routes"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"github.com/gin-gonic/gin"
)

var ginLambda *ginadapter.GinLambda

// setup complete app routers
func setupRouter() *gin.Engine {

	router := gin.Default()

	common.SetupCustomValidators()

	routes.RouteHandler(router)

	router.Use(common.CORSMiddleware())

	return router
}

func main() {

	common.LoadENVVars()
	common.LoadConfig()
	common.ConfigureLogging(common.ServiceConfigurations.LogLevel)

	gateways.Init()
	operations.InitDeps()

	if common.GloabalENVVars.GinMode == "release" {
		fmt.Println("running aws lambda in aws")
		g := setupRouter()
		ginLambda = ginadapter.New(g)
		lambda.Start(AWSHandler)
	} else {
		listenAddress := ":" + common.ServiceConfigurations.Server.Port
		log.Info(fmt.Sprintf("** Service Started on Port %s **", listenAddress))
		log.Fatal(http.ListenAndServe(listenAddress, setupRouter()))
	}
}

func AWSHandler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return ginLambda.ProxyWithContext(ctx, request)
}
