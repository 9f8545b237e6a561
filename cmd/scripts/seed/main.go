package main

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/circulation/pkg/books"
	"github.com/shishobooks/circulation/pkg/clock"
	"github.com/shishobooks/circulation/pkg/config"
	"github.com/shishobooks/circulation/pkg/database"
	"github.com/shishobooks/circulation/pkg/ledger"
	"github.com/shishobooks/circulation/pkg/members"
	"github.com/shishobooks/circulation/pkg/migrations"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/shishobooks/circulation/pkg/settings"
)

var (
	adjectives = []string{"Silent", "Hidden", "Last", "Burning", "Glass", "Northern", "Quiet", "Broken", "Golden", "Wandering"}
	nouns      = []string{"River", "Garden", "Archive", "Harbor", "Orchard", "Lantern", "Atlas", "Tide", "Cathedral", "Meridian"}
	firstNames = []string{"Ada", "Bruno", "Chidi", "Dara", "Elif", "Farah", "Goran", "Hana", "Ines", "Jonas", "Kiri", "Luca"}
	lastNames  = []string{"Okafor", "Lindqvist", "Moreau", "Tanaka", "Reyes", "Novak", "Haddad", "Kowalski", "Mensah", "Byrne"}
	genres     = []string{"fiction", "mystery", "history", "science", "poetry", "fantasy", "biography"}
)

func main() {
	log := logger.New()
	ctx := context.Background()

	var opts struct {
		Books   int   `short:"b" long:"books" default:"50" description:"Number of books to create"`
		Members int   `short:"m" long:"members" default:"20" description:"Number of members to create"`
		Loans   int   `short:"l" long:"loans" default:"15" description:"Number of loans to open"`
		Seed    int64 `short:"s" long:"seed" default:"1" description:"Random seed, so runs are reproducible"`
	}

	if _, err := flags.Parse(&opts); err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}
	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}
	defer db.Close()
	if _, err := migrations.BringUpToDate(ctx, db); err != nil {
		log.Err(err).Fatal("migrations error")
	}

	clk := clock.System()
	rnd := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec
	bookService := books.NewService(db, clk)
	memberService := members.NewService(db)
	ledgerService := ledger.NewService(db, settings.NewService(db), clk)

	bookIDs := make([]int, 0, opts.Books)
	for i := 0; i < opts.Books; i++ {
		year := 1950 + rnd.Intn(clk.Now().Year()-1950)
		book := &models.Book{
			Title:           fmt.Sprintf("The %s %s", pick(rnd, adjectives), pick(rnd, nouns)),
			Authors:         []string{fmt.Sprintf("%s %s", pick(rnd, firstNames), pick(rnd, lastNames))},
			PublicationYear: &year,
			Genres:          []string{pick(rnd, genres)},
			TotalCopies:     1 + rnd.Intn(3),
		}
		if err := bookService.CreateBook(ctx, book); err != nil {
			log.Err(err).Fatal("create book error")
		}
		bookIDs = append(bookIDs, book.ID)
	}

	memberIDs := make([]int, 0, opts.Members)
	for i := 0; i < opts.Members; i++ {
		member := &models.Member{
			Name:       fmt.Sprintf("%s %s", pick(rnd, firstNames), pick(rnd, lastNames)),
			MemberCode: fmt.Sprintf("SEED-%04d-%04d", opts.Seed, i+1),
			MemberType: pick(rnd, models.MemberTypes),
		}
		if err := memberService.CreateMember(ctx, member); err != nil {
			log.Err(err).Fatal("create member error")
		}
		memberIDs = append(memberIDs, member.ID)
	}

	lent := 0
	for i := 0; i < opts.Loans && len(bookIDs) > 0 && len(memberIDs) > 0; i++ {
		_, err := ledgerService.Lend(ctx, ledger.LendOptions{
			BookID:   bookIDs[rnd.Intn(len(bookIDs))],
			MemberID: memberIDs[rnd.Intn(len(memberIDs))],
		})
		if err != nil {
			// Out of copies; try another pair.
			log.Warn("lend skipped", logger.Data{"error": err.Error()})
			continue
		}
		lent++
	}

	log.Info("seeded", logger.Data{
		"books":   len(bookIDs),
		"members": len(memberIDs),
		"loans":   lent,
	})
}

func pick(rnd *rand.Rand, from []string) string {
	return from[rnd.Intn(len(from))]
}
