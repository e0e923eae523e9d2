package main

import (
	"context"
	"fmt"
	"net/http/httptest"
	"time"

	"SettleX-Atlas/internal/agent"
	"SettleX-Atlas/internal/api"
	"SettleX-Atlas/internal/quote"
	"SettleX-Atlas/internal/session"
	"SettleX-Atlas/internal/ticket"
	"SettleX-Atlas/sdk/go/atlas"
)

func main() {
	sink := ticket.NewMemorySink()
	quotes := quote.NewTable(quote.WithRates(quote.FallbackRates()))
	ag := agent.New(nil, quotes, agent.WithTicketSink(sink))
	sessions := session.NewManager(session.Config{MaxHistory: 20})
	server := api.NewServer(":0", ag, sessions, api.WithTicketLister(sink))

	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	client, err := atlas.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := client.CreateSession(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("opened session %s\n", id)

	for _, message := range []string{
		"hello",
		"what is the usd rate?",
		"convert 5000 sgd",
		"my payout is stuck, raise a ticket",
		"Payment to Hamburg supplier not credited",
		"TX-20250101-77",
	} {
		reply, err := client.Send(ctx, id, message)
		if err != nil {
			panic(err)
		}
		fmt.Printf("> %s\n%s\n\n", message, reply.Reply)
	}

	tickets, err := client.Tickets(ctx, 5)
	if err != nil {
		panic(err)
	}
	for _, t := range tickets {
		fmt.Printf("ticket %s: %s (%s)\n", t.ID, t.Issue, t.TransactionRef)
	}

	if err := client.CloseSession(ctx, id); err != nil {
		panic(err)
	}
}
