package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/library-backend/internal/app"
	"github.com/yungbote/library-backend/internal/services"
)

type seedBook struct {
	title  string
	genre  string
	copies int
}

var seedCatalog = []struct {
	first, last string
	books       []seedBook
}{
	{"Ursula", "Le Guin", []seedBook{{"A Wizard of Earthsea", "fantasy", 3}, {"The Left Hand of Darkness", "science fiction", 2}}},
	{"Toni", "Morrison", []seedBook{{"Beloved", "fiction", 2}}},
	{"Jorge Luis", "Borges", []seedBook{{"Ficciones", "fiction", 1}}},
}

var seedMembers = []struct{ username, email string }{
	{"reader1", "reader1@example.com"},
	{"reader2", "reader2@example.com"},
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load a small sample catalog and members",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			books := 0
			for _, entry := range seedCatalog {
				author, err := a.Services.Catalog.CreateAuthor(ctx, services.AuthorInput{FirstName: entry.first, LastName: entry.last})
				if err != nil {
					return fmt.Errorf("seed author %s %s: %w", entry.first, entry.last, err)
				}
				for _, b := range entry.books {
					if _, err := a.Services.Catalog.CreateBook(ctx, services.BookInput{
						Title:       b.title,
						AuthorID:    author.ID,
						Genre:       b.genre,
						TotalCopies: b.copies,
					}); err != nil {
						return fmt.Errorf("seed book %q: %w", b.title, err)
					}
					books++
				}
			}
			members := 0
			for _, m := range seedMembers {
				_, err := a.Services.Members.CreateMember(ctx, services.MemberInput{Username: m.username, Email: m.email})
				if errors.Is(err, services.ErrUsernameTaken) {
					continue
				}
				if err != nil {
					return fmt.Errorf("seed member %s: %w", m.username, err)
				}
				members++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d authors, %d books, %d members.\n", len(seedCatalog), books, members)
			return nil
		},
	}
}
