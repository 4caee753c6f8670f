package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/smallnest/docchat/log"
	"github.com/smallnest/docchat/moderation"
	"github.com/smallnest/docchat/rag/chain"
	"github.com/smallnest/docchat/rag/loader"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/schema"
)

// ConfigureRetrievalChain turns uploaded files into a conversational chain.
//
// The files are staged in a temporary directory that is removed before
// returning, loaded by extension, indexed with ConfigureRetriever and
// answered by the strategy opts.ForwardLooking selects. With moderation
// enabled the answer passes through a moderation.Stage and the returned
// chain also outputs "output".
//
// The returned chain declares the strategy's input keys. For the standard
// strategy callers pass "chat_history" and "question"; the session history
// replaces whatever is passed as chat_history.
func ConfigureRetrievalChain(ctx context.Context, files []UploadedFile, deps Dependencies, opts Options) (chains.Chain, error) {
	if deps.LLM == nil {
		return nil, fmt.Errorf("%w: llm", ErrMissingDependency)
	}
	if opts.Moderation && deps.Moderator == nil {
		return nil, ErrNoModerator
	}

	docs, err := loadFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	retrieverOpts := append([]RetrieverOption{WithCompression(opts.Compression)}, opts.RetrieverOptions...)
	r, err := ConfigureRetriever(ctx, docs, deps.Embedder, retrieverOpts...)
	if err != nil {
		return nil, err
	}

	strategy := chain.StrategyFor(opts.ForwardLooking)
	session := deps.Session
	if session == nil {
		session = chain.NewSession(strategy)
	}
	chainOpts := opts.ChainOptions
	if deps.TokenGenerator != nil {
		chainOpts = append([]chain.Option{chain.WithTokenGenerator(deps.TokenGenerator)}, chainOpts...)
	}
	c, err := chain.Configure(deps.LLM, r, session, strategy, chainOpts...)
	if err != nil {
		return nil, err
	}
	log.Info("configured %s chain for session %s", strategy, session.ID())

	if !opts.Moderation {
		return c, nil
	}
	stage := moderation.NewStage(deps.Moderator, strategy.OutputKey(), opts.StageOptions...)
	seq, err := chains.NewSequentialChain(
		[]chains.Chain{c, stage},
		strategy.InputKeys(),
		[]string{strategy.OutputKey(), moderation.OutputKey},
	)
	if err != nil {
		return nil, fmt.Errorf("compose moderation: %w", err)
	}
	log.Debug("moderation stage appended after %q", strategy.OutputKey())
	return seq, nil
}

// loadFiles writes files to a temporary directory and loads them. The
// directory is gone when loadFiles returns.
func loadFiles(ctx context.Context, files []UploadedFile) ([]schema.Document, error) {
	dir, err := os.MkdirTemp("", "docchat-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("remove temp dir %s: %v", dir, err)
		}
	}()

	var docs []schema.Document
	for i, f := range files {
		name := filepath.Base(f.Name)
		if name == "." || name == ".." || name == string(filepath.Separator) {
			return nil, &loader.LoadError{Path: f.Name, Err: ErrInvalidFileName}
		}
		// One subdirectory per upload keeps files with equal names apart.
		sub := filepath.Join(dir, strconv.Itoa(i))
		if err := os.Mkdir(sub, 0o700); err != nil {
			return nil, &loader.LoadError{Path: f.Name, Err: err}
		}
		path := filepath.Join(sub, name)
		if err := os.WriteFile(path, f.Content, 0o600); err != nil {
			return nil, &loader.LoadError{Path: f.Name, Err: err}
		}

		loaded, err := loader.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	log.Info("loaded %d documents from %d files", len(docs), len(files))
	return docs, nil
}
