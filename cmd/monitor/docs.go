package main

//go:generate swag init -g cmd/monitor/main.go -o docs

// @title           PolyEdge Monitor API
// @version         0.1.0
// @description     Binary option fair values, order-book summaries, and ranked opportunities for Polymarket stock-price events.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
