package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopfloor-systems/posbridge/api"
	"github.com/shopfloor-systems/posbridge/config"
	"github.com/shopfloor-systems/posbridge/controller"
	"github.com/shopfloor-systems/posbridge/printing"
	"github.com/shopfloor-systems/posbridge/scanner"
	"github.com/shopfloor-systems/posbridge/server"
	"github.com/shopfloor-systems/posbridge/wedge"
)

func main() {
	cfg := config.Load()
	log.Printf("Print backend: %s", cfg.PrintAPIURL)

	client := printing.NewClient(cfg.PrintAPIURL, printing.WithTimeout(cfg.PrintAPITimeout))
	registry := printing.NewRegistry(client)
	dispatcher := printing.NewDispatcher(client)

	ctrl, err := controller.New(controller.Config{
		Scanner: scanner.Config{
			MinLength:       cfg.MinLength,
			MaxLength:       cfg.MaxLength,
			InterKeyTimeout: cfg.InterKeyTimeout,
			CommitTimeout:   cfg.CommitTimeout,
			OnlyNumeric:     cfg.OnlyNumeric,
			TabTerminator:   cfg.TabTerminator,
		},
		UseDataWedge: cfg.UseDataWedge,
		DataWedgeURL: cfg.DataWedgeURL,
		MaxHistory:   cfg.HistorySize,
		OnScan: func(r controller.ScanResult) {
			log.Printf("Scan accepted: %s (%s)", r.Barcode, r.Source)
		},
	})
	if err != nil {
		log.Fatal("Scanner setup failed: ", err)
	}
	ctrl.Start()
	defer ctrl.Stop()

	if cfg.PrinterID != "" {
		log.Printf("Single-printer mode: all jobs go to %s", cfg.PrinterID)
	} else {
		registry.LoadPrinters(context.Background(), printing.Class(cfg.PrinterClass))
	}

	// The TCP ingest server is the keyboard-channel transport; in
	// datawedge mode the vendor bridge is the only source.
	if !cfg.UseDataWedge {
		ingest := server.New(ctrl, cfg.ScanListenAddress)
		if err := ingest.StartAsync(); err != nil {
			log.Fatal("Scan ingest failed: ", err)
		}
		defer ingest.Stop()

		if cfg.UseUSBWedge {
			usb, err := wedge.NewUSBWedgeAuto(ctrl)
			if err != nil {
				log.Printf("USB scanner unavailable: %v", err)
			} else if err := usb.Open(); err != nil {
				log.Printf("Failed to open USB scanner: %v", err)
				usb.Close()
			} else {
				defer usb.Close()
			}
		}
	}

	handler := &api.Handler{
		Controller:   ctrl,
		Registry:     registry,
		Dispatcher:   dispatcher,
		PrinterID:    cfg.PrinterID,
		PrinterClass: printing.Class(cfg.PrinterClass),
	}
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddress,
		Handler: api.NewRouter(handler),
	}
	go func() {
		log.Printf("Agent API listening on %s", cfg.HTTPAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("API server failed: ", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Println("Shutting down...")
	httpServer.Shutdown(context.Background())
}
