package main

import (
	"fmt"
	"net/http"

	"bloxmate_server/controllers"
	"bloxmate_server/routes"
	"bloxmate_server/services"
	"bloxmate_server/socket"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func initLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func main() {
	viper.AutomaticEnv()
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("AWS_REGION", "ap-south-1")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("LOG_LEVEL", "info")

	log := initLogger(viper.GetString("LOG_LEVEL"))

	// Initialize DynamoDB client and service
	log.Info("Initializing DynamoDB client...")
	dynamoClient := services.InitializeDynamoDBClient(viper.GetString("AWS_REGION"))
	dynamoService := &services.DynamoService{Client: dynamoClient, Log: log}
	log.Info("DynamoDB client initialized.")

	// Initialize Redis pool and realtime service
	log.Info("Initializing Redis pool...")
	redisPool := services.InitializeRedisPool(viper.GetString("REDIS_ADDR"))
	defer redisPool.Close()
	realtimeService := &services.RealtimeService{Pool: redisPool, Log: log}
	log.Info("Redis pool initialized.")

	// Stores
	groupStore := &services.DynamoGroupStore{Dynamo: dynamoService}
	inviteStore := &services.DynamoInviteStore{Dynamo: dynamoService}
	requestStore := &services.DynamoJoinRequestStore{Dynamo: dynamoService}
	metaStore := &services.RedisMetaStore{RTS: realtimeService, Log: log}
	cleanup := &services.MetaCleanup{Meta: metaStore, Log: log}

	// Socket server for realtime pushes
	socketServer := socket.NewServer(log)
	go func() {
		if err := socketServer.Serve(); err != nil {
			log.WithError(err).Fatal("socket server failed")
		}
	}()
	defer socketServer.Close()

	// Services
	inviteService := &services.InviteService{
		Groups:  groupStore,
		Invites: inviteStore,
		Meta:    metaStore,
		Log:     log,
	}
	joinRequestService := &services.JoinRequestService{
		Groups:   groupStore,
		Requests: requestStore,
		Meta:     metaStore,
		Log:      log,
	}
	membershipService := &services.MembershipService{
		Groups:  groupStore,
		Meta:    metaStore,
		Cleanup: cleanup,
		Log:     log,
	}
	groupService := &services.GroupService{
		Groups:   groupStore,
		Invites:  inviteStore,
		Requests: requestStore,
		Meta:     metaStore,
		Cleanup:  cleanup,
		Log:      log,
	}
	chatService := &services.GroupChatService{
		Groups: groupStore,
		Meta:   metaStore,
		Socket: socketServer,
		Log:    log,
	}

	// Initialize the router
	r := mux.NewRouter()

	// Welcome and health endpoints
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to BloxMate")
	}).Methods("GET")
	r.HandleFunc("/health", controllers.HealthCheckHandler).Methods("GET")

	// Register routes
	routes.RegisterGroupRoutes(r, groupService)
	routes.RegisterInviteRoutes(r, inviteService)
	routes.RegisterJoinRequestRoutes(r, joinRequestService)
	routes.RegisterMemberRoutes(r, membershipService)
	routes.RegisterGroupChatRoutes(r, chatService)

	// Mount the socket.io endpoint
	r.Handle("/socket.io/", socketServer.Handler())

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	port := viper.GetString("PORT")
	log.WithField("port", port).Info("Starting server")
	log.Fatal(http.ListenAndServe(":"+port, corsHandler))
}
