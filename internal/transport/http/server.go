package http

import (
	"context"
	"net/http"
	"time"

	"wishforge/internal/service"
)

type Server struct {
	srv *http.Server
}

func NewServer(addr string, credits service.CreditService, purchases service.PurchaseService, generate service.GenerateService) *Server {
	mux := http.NewServeMux()
	h := NewHandler(credits, purchases, generate)
	h.Register(mux)

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	return s.srv.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
