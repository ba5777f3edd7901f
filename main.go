package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	cachex "github.com/dhraviq/agent-gateway/gateway/cache"
	"github.com/dhraviq/agent-gateway/gateway/chat"
	contractx "github.com/dhraviq/agent-gateway/gateway/contract"
	"github.com/dhraviq/agent-gateway/gateway/dispatch"
	memoryx "github.com/dhraviq/agent-gateway/gateway/memory"
	"github.com/dhraviq/agent-gateway/gateway/notify"
	"github.com/dhraviq/agent-gateway/gateway/persona"
	"github.com/dhraviq/agent-gateway/gateway/server"
	"github.com/dhraviq/agent-gateway/gateway/sessionlog"
	configx "github.com/dhraviq/agent-gateway/pkg/config"
	docstorex "github.com/dhraviq/agent-gateway/pkg/docstore"
	_ "github.com/dhraviq/agent-gateway/pkg/logger/autoload"
	openaix "github.com/dhraviq/agent-gateway/pkg/openai"
	pushoverx "github.com/dhraviq/agent-gateway/pkg/pushover"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openaiCfg := configx.MustNew[openaix.Config]("OPENAI")
	client := openaix.NewClient(*openaiCfg)
	if client == nil {
		log.Fatal().Msg("openai api key is required")
	}
	backend := openaix.NewBackend(client, openaiCfg.Model)

	// The document store and notification channel are optional
	// collaborators: without them the gateway serves answers but skips
	// persistence and alerts.
	var store contractx.DocumentStore
	var pinger server.Pinger
	if docCfg, err := configx.New[docstorex.Config]("DOCSTORE"); err != nil {
		log.Warn().Err(err).Msg("document store not configured; persistence disabled")
	} else if st, err := docstorex.NewStore(*docCfg); err != nil {
		log.Warn().Err(err).Msg("document store unavailable; persistence disabled")
	} else {
		if err := st.Init(ctx); err != nil {
			log.Warn().Err(err).Msg("document store schema init failed")
		}
		store = st
		pinger = st
	}

	var notifier contractx.Notifier
	if pushCfg, err := configx.New[pushoverx.Config]("PUSHOVER"); err != nil {
		log.Warn().Err(err).Msg("pushover not configured; notifications disabled")
	} else if pc, err := pushoverx.NewClient(*pushCfg); err != nil {
		log.Warn().Err(err).Msg("pushover unavailable; notifications disabled")
	} else {
		notifier = pc
	}

	dispatcher := dispatch.New(
		persona.NewRegistry(),
		backend,
		sessionlog.NewRecorder(store),
		store,
		notify.NewTrigger(notifier),
	)

	chatSvc, err := chat.New(memoryx.NewStore(), cachex.New(cachex.DefaultTTL), backend, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build chat service")
	}

	srvCfg := configx.MustNew[server.Config]("SERVER")
	srv := server.New(*srvCfg, dispatcher, chatSvc, pinger)

	log.Info().Str("addr", srvCfg.Addr).Msg("gateway listening")
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
