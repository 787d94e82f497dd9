package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/madhatter5501/StudyHub"
	"github.com/madhatter5501/StudyHub/hub"
	"github.com/madhatter5501/StudyHub/internal/config"
	"github.com/madhatter5501/StudyHub/internal/db"
	"github.com/madhatter5501/StudyHub/internal/logfields"
	"github.com/madhatter5501/StudyHub/streak"
)

// withApp opens the store, reconciles the streak and runs fn.
func withApp(g *Global, fn func(ctx context.Context, app *studyhub.App) error) error {
	ctx := context.Background()
	app, st, err := openApp(g)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			g.Logger.Warn("Failed to close storage", logfields.Error(err))
		}
	}()
	if _, err := app.Start(ctx); err != nil {
		return err
	}
	return fn(ctx, app)
}

func printStreak(w io.Writer, v studyhub.StreakView) {
	switch {
	case v.Count == 0:
		fmt.Fprintln(w, "No active streak")
	case v.Count == 1:
		fmt.Fprintf(w, "Streak: 1 day (last studied %s)\n", v.LastCompletedDate)
	default:
		fmt.Fprintf(w, "Streak: %d days (last studied %s)\n", v.Count, v.LastCompletedDate)
	}
}

// StreakCmd groups the streak subcommands.
type StreakCmd struct {
	Show      StreakShowCmd      `cmd:"" default:"1" help:"Print the current streak"`
	Complete  StreakCompleteCmd  `cmd:"" help:"Record a study completion for today"`
	Reconcile StreakReconcileCmd `cmd:"" help:"Break the streak if a day was missed"`
}

type StreakShowCmd struct{}

func (c *StreakShowCmd) Run(g *Global) error {
	return withApp(g, func(ctx context.Context, app *studyhub.App) error {
		v, err := app.Streak(ctx)
		if err != nil {
			return err
		}
		printStreak(g.Out, v)
		return nil
	})
}

type StreakCompleteCmd struct{}

func (c *StreakCompleteCmd) Run(g *Global) error {
	return withApp(g, func(ctx context.Context, app *studyhub.App) error {
		v, err := app.CompleteNow(ctx)
		if err != nil {
			return err
		}
		printStreak(g.Out, v)
		return nil
	})
}

type StreakReconcileCmd struct{}

func (c *StreakReconcileCmd) Run(g *Global) error {
	return withApp(g, func(ctx context.Context, app *studyhub.App) error {
		v, err := app.Reconcile(ctx)
		if err != nil {
			return err
		}
		printStreak(g.Out, v)
		return nil
	})
}

// TodoCmd groups the to-do subcommands.
type TodoCmd struct {
	List   TodoListCmd   `cmd:"" default:"1" help:"List to-dos"`
	Add    TodoAddCmd    `cmd:"" help:"Add a to-do"`
	Toggle TodoToggleCmd `cmd:"" help:"Check or uncheck a to-do"`
	Delete TodoDeleteCmd `cmd:"" help:"Delete a to-do"`
}

type TodoListCmd struct{}

func (c *TodoListCmd) Run(g *Global) error {
	return withApp(g, func(ctx context.Context, app *studyhub.App) error {
		todos, err := app.Todos().List(ctx)
		if err != nil {
			return err
		}
		if len(todos) == 0 {
			fmt.Fprintln(g.Out, "No to-dos")
			return nil
		}
		tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
		for _, t := range todos {
			mark := "[ ]"
			if t.Completed {
				mark = "[x]"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, t.ID, t.Date, t.Name)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		p, err := app.Todos().Progress(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(g.Out, "%d/%d done (%d%%)\n", p.Done, p.Total, p.Percent)
		return nil
	})
}

type TodoAddCmd struct {
	Name string `arg:"" help:"Task name"`
	Due  string `short:"d" help:"Due date (YYYY-MM-DD, defaults to today)"`
}

func (c *TodoAddCmd) Run(g *Global) error {
	return withApp(g, func(ctx context.Context, app *studyhub.App) error {
		due := c.Due
		if due == "" {
			due = app.Today().String()
		}
		todo, err := app.Todos().Add(ctx, c.Name, due, app.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(g.Out, "Added %s (due %s)\n", todo.ID, todo.Date)
		return nil
	})
}

type TodoToggleCmd struct {
	ID string `arg:"" help:"To-do ID"`
}

func (c *TodoToggleCmd) Run(g *Global) error {
	return withApp(g, func(ctx context.Context, app *studyhub.App) error {
		todo, err := app.Todos().Toggle(ctx, c.ID, app.Now())
		if err != nil {
			return err
		}
		if !todo.Completed {
			fmt.Fprintf(g.Out, "Reopened %q\n", todo.Name)
			return nil
		}
		fmt.Fprintf(g.Out, "Completed %q\n", todo.Name)
		v, err := app.Streak(ctx)
		if err != nil {
			return err
		}
		printStreak(g.Out, v)
		return nil
	})
}

type TodoDeleteCmd struct {
	ID string `arg:"" help:"To-do ID"`
}

func (c *TodoDeleteCmd) Run(g *Global) error {
	return withApp(g, func(ctx context.Context, app *studyhub.App) error {
		if err := app.Todos().Delete(ctx, c.ID); err != nil {
			return err
		}
		fmt.Fprintf(g.Out, "Deleted %s\n", c.ID)
		return nil
	})
}

// NoteCmd groups the daily note subcommands.
type NoteCmd struct {
	Show NoteShowCmd `cmd:"" default:"1" help:"Print a daily note"`
	Set  NoteSetCmd  `cmd:"" help:"Replace the text of a daily note"`
}

func noteDay(app *studyhub.App, date string) (streak.Day, error) {
	if date == "" {
		return app.Today(), nil
	}
	return streak.ParseDay(date)
}

type NoteShowCmd struct {
	Date string `short:"d" help:"Day (YYYY-MM-DD, defaults to today)"`
}

func (c *NoteShowCmd) Run(g *Global) error {
	return withApp(g, func(ctx context.Context, app *studyhub.App) error {
		day, err := noteDay(app, c.Date)
		if err != nil {
			return err
		}
		note, err := app.Notes().Get(ctx, day)
		if err != nil {
			return err
		}
		if !note.HasContent() {
			fmt.Fprintf(g.Out, "No note for %s\n", day)
			return nil
		}
		fmt.Fprintf(g.Out, "%s\n%s\n", day, note.Note)
		for _, task := range note.Tasks {
			mark := "[ ]"
			if task.Done {
				mark = "[x]"
			}
			fmt.Fprintf(g.Out, "%s %s\n", mark, task.Text)
		}
		return nil
	})
}

type NoteSetCmd struct {
	Text string `arg:"" help:"Note text"`
	Date string `short:"d" help:"Day (YYYY-MM-DD, defaults to today)"`
}

func (c *NoteSetCmd) Run(g *Global) error {
	return withApp(g, func(ctx context.Context, app *studyhub.App) error {
		day, err := noteDay(app, c.Date)
		if err != nil {
			return err
		}
		if _, err := app.Notes().SetNote(ctx, day, c.Text); err != nil {
			return err
		}
		fmt.Fprintf(g.Out, "Saved note for %s\n", day)
		return nil
	})
}

// ImportCmd copies every key of a JSON data file into the configured
// SQLite database.
type ImportCmd struct {
	From string `arg:"" type:"existingfile" help:"JSON data file to import"`
}

func (c *ImportCmd) Run(g *Global) error {
	if g.Config.Storage.Backend != config.BackendSQLite {
		return errors.New("import needs storage.backend set to sqlite")
	}
	src, err := hub.OpenState(c.From)
	if err != nil {
		return err
	}
	database, err := db.Open(g.Config.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	n, err := db.NewStore(database).Import(context.Background(), src)
	if err != nil {
		return err
	}
	g.Logger.Info("Import complete", logfields.Path(c.From), logfields.Count(n))
	fmt.Fprintf(g.Out, "Imported %d keys into %s\n", n, database.Path())
	return nil
}
