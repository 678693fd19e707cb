/*
serve.go - Reference server verb

Runs the in-memory settlement server with graceful shutdown. The demo
seed gives the workflow something to close: two registered projects
(one finished), a handful of timelog entries and an already settled
prior month.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moonlake/settlement-engine/api"
	"github.com/moonlake/settlement-engine/timelog"
)

var (
	servePort  int
	adminToken string
	userToken  string
	seedDemo   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference settlement server",
	RunE: func(cmd *cobra.Command, args []string) error {
		state := api.NewState()
		if seedDemo {
			seedDemoState(state)
		}

		handler := api.NewHandler(state, logger)
		router := api.NewRouter(handler, api.Tokens{Admin: adminToken, User: userToken})

		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", servePort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server starting",
				zap.Int("port", servePort),
				zap.Bool("seeded", seedDemo))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case <-quit:
		}

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP server port")
	serveCmd.Flags().StringVar(&adminToken, "admin-token", "admin-token", "privileged credential token")
	serveCmd.Flags().StringVar(&userToken, "user-token", "user-token", "default credential token")
	serveCmd.Flags().BoolVar(&seedDemo, "seed-demo", false, "seed demo projects and timelogs")
}

func seedDemoState(s *api.State) {
	now := timelog.MonthOf(time.Now())
	s.ClosedMonths[now.Prev()] = true
	s.AddProject("aurora", false)
	s.AddProject("nebula", true)
	s.AddTimelog(timelog.Entry{UserID: "kim.a", Project: "aurora", DurationMinutes: 5400, Year: now.Year, Month: int(now.Month)})
	s.AddTimelog(timelog.Entry{UserID: "lee.b", Project: "nebula", DurationMinutes: 360, Year: now.Year, Month: int(now.Month)})
	s.AddTimelog(timelog.Entry{UserID: "park.c", Project: "nebula", DurationMinutes: 150, Year: now.Year, Month: int(now.Month)})
	s.AddTimelog(timelog.Entry{UserID: "choi.d", Project: "orphan", DurationMinutes: 90, Year: now.Year, Month: int(now.Month)})
}
