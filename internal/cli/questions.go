package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"techkwiz-quiz-service/internal/config"
	"techkwiz-quiz-service/internal/domain"
	"techkwiz-quiz-service/internal/questions"
)

// NewQuestionsCmd manages the admin-authored question set.
func NewQuestionsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Manage admin questions in the configured store",
	}
	cmd.AddCommand(newQuestionsImportCmd(configPath))
	cmd.AddCommand(newQuestionsClearCmd(configPath))
	return cmd
}

func newQuestionsImportCmd(configPath *string) *cobra.Command {
	var (
		file  string
		merge bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Normalize questions from a JSON file and store the valid ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := requirePersistentStore(cfg); err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read questions: %w", err)
			}
			raws, err := questions.Decode(data)
			if err != nil {
				return err
			}
			imported, rejected := questions.NormalizeAll(logger, raws)

			store, err := openStorage(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if merge {
				existing, err := loadAdminQuestions(cmd, store)
				if err != nil {
					return err
				}
				imported = mergeQuestions(existing, imported)
			}
			payload, err := json.Marshal(imported)
			if err != nil {
				return fmt.Errorf("marshal questions: %w", err)
			}
			if err := store.kv.Set(cmd.Context(), questions.AdminKey, string(payload)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %d questions, rejected %d\n", len(imported), rejected)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON array of questions (unified or legacy format)")
	cmd.Flags().BoolVar(&merge, "append", false, "merge into the stored set instead of replacing it")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newQuestionsClearCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all admin questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := requirePersistentStore(cfg); err != nil {
				return err
			}
			store, err := openStorage(cmd.Context(), cfg, newLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.kv.Delete(cmd.Context(), questions.AdminKey); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "admin questions cleared")
			return nil
		},
	}
}

// requirePersistentStore refuses the memory driver, whose contents end with the process.
func requirePersistentStore(cfg config.Config) error {
	switch cfg.Storage.Driver {
	case "", "memory":
		return fmt.Errorf("storage driver %q does not outlive this command; configure redis, postgres or sqlite", cfg.Storage.Driver)
	}
	return nil
}

func loadAdminQuestions(cmd *cobra.Command, store *storage) ([]domain.Question, error) {
	raw, ok, err := store.kv.Get(cmd.Context(), questions.AdminKey)
	if err != nil || !ok {
		return nil, err
	}
	raws, err := questions.Decode([]byte(raw))
	if err != nil {
		return nil, err
	}
	existing, _ := questions.NormalizeAll(newLogger(config.Default(), cmd.ErrOrStderr()), raws)
	return existing, nil
}

// mergeQuestions overlays next onto existing by id, keeping first-seen order.
func mergeQuestions(existing, next []domain.Question) []domain.Question {
	index := make(map[string]int, len(existing))
	out := make([]domain.Question, 0, len(existing)+len(next))
	for _, q := range existing {
		index[q.ID] = len(out)
		out = append(out, q)
	}
	for _, q := range next {
		if i, ok := index[q.ID]; ok {
			out[i] = q
			continue
		}
		index[q.ID] = len(out)
		out = append(out, q)
	}
	return out
}
