package main

//go:generate swag init -g cmd/optimizer/main.go -o docs

// @title           Ads Optimizer API
// @version         0.1.0
// @description     Optimization rules, manual execution, and the scheduled sweep.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
