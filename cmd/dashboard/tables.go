package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/taufik7000/efarina-finance-flow/internal/gateway"
	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/report"
)

func sub(args []string) (string, []string) {
	if len(args) == 0 {
		return "", nil
	}
	return args[0], args[1:]
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func (a *app) tx(ctx context.Context, args []string) error {
	cmd, rest := sub(args)
	switch cmd {
	case "list":
		return a.txList(ctx, rest, false)
	case "summary":
		return a.txList(ctx, rest, true)
	case "add":
		return a.txAdd(ctx, rest)
	case "update":
		return a.txUpdate(ctx, rest)
	case "delete":
		return a.txDelete(ctx, rest)
	}
	return fmt.Errorf("usage: dashboard tx list|add|update|delete|summary")
}

func (a *app) txList(ctx context.Context, args []string, summary bool) error {
	fs := a.flags("tx")
	var f report.Filter
	fs.StringVar(&f.Search, "search", "", "Match description")
	kind := fs.String("type", "", "income or expense")
	fs.StringVar(&f.Category, "category", "", "Category")
	fs.StringVar(&f.From, "from", "", "First date, YYYY-MM-DD")
	fs.StringVar(&f.To, "to", "", "Last date, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f.Kind = models.Kind(*kind)
	if f.Kind != "" && !f.Kind.Valid() {
		return fmt.Errorf("invalid type %q", *kind)
	}

	rows, err := a.txs.List(ctx)
	if err != nil {
		return err
	}
	rows = report.Apply(rows, f)

	if summary {
		printSummary(a.stdout, report.Summarize(rows))
		return nil
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.stdout, "Belum ada transaksi")
		return nil
	}
	w := table(a.stdout)
	fmt.Fprintln(w, "ID\tTANGGAL\tDESKRIPSI\tKATEGORI\tJUMLAH")
	for _, t := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Date, t.Description, t.Category, report.FormatAmount(t))
	}
	return w.Flush()
}

func printSummary(out io.Writer, s report.Summary) {
	w := table(out)
	fmt.Fprintf(w, "Pemasukan\t%s\n", report.FormatIDR(s.Income))
	fmt.Fprintf(w, "Pengeluaran\t%s\n", report.FormatIDR(s.Expense))
	fmt.Fprintf(w, "Saldo\t%s\n", report.FormatIDR(s.Balance))
	fmt.Fprintf(w, "Transaksi\t%d\n", s.Count)
	if len(s.ByCategory) > 0 {
		fmt.Fprintln(w, "\t")
		fmt.Fprintln(w, "KATEGORI\tJENIS\tTOTAL\tJUMLAH")
		for _, c := range s.ByCategory {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.Category, c.Kind, report.FormatIDR(c.Total), c.Count)
		}
	}
	_ = w.Flush()
}

func (a *app) txAdd(ctx context.Context, args []string) error {
	fs := a.flags("tx add")
	date := fs.String("date", "", "Date, YYYY-MM-DD")
	desc := fs.String("desc", "", "Description")
	category := fs.String("category", "", "Category")
	amount := fs.String("amount", "", "Amount in rupiah")
	kind := fs.String("type", string(models.KindIncome), "income or expense")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q", *amount)
	}
	t, err := a.txs.Create(ctx, gateway.TransactionInput{
		Date:        *date,
		Description: *desc,
		Category:    *category,
		Amount:      d,
		Type:        models.Kind(*kind),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s\t%s\n", t.ID, report.FormatAmount(*t))
	return nil
}

func (a *app) txUpdate(ctx context.Context, args []string) error {
	fs := a.flags("tx update")
	id := fs.String("id", "", "Transaction ID")
	date := fs.String("date", "", "Date, YYYY-MM-DD")
	desc := fs.String("desc", "", "Description")
	category := fs.String("category", "", "Category")
	amount := fs.String("amount", "", "Amount in rupiah")
	kind := fs.String("type", "", "income or expense")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("missing -id")
	}

	set := visited(fs)
	var p models.TransactionPatch
	if set["date"] {
		p.Date = date
	}
	if set["desc"] {
		p.Description = desc
	}
	if set["category"] {
		p.Category = category
	}
	if set["amount"] {
		d, err := decimal.NewFromString(*amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q", *amount)
		}
		p.Amount = &d
	}
	if set["type"] {
		k := models.Kind(*kind)
		p.Type = &k
	}
	t, err := a.txs.Update(ctx, *id, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", t.ID, t.Description, report.FormatAmount(*t))
	return nil
}

func (a *app) txDelete(ctx context.Context, args []string) error {
	fs := a.flags("tx delete")
	id := fs.String("id", "", "Transaction ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("missing -id")
	}
	return a.txs.Delete(ctx, *id)
}

func (a *app) usersCmd(ctx context.Context, args []string) error {
	cmd, rest := sub(args)
	switch cmd {
	case "list":
		return a.usersList(ctx)
	case "add":
		return a.usersAdd(ctx, rest)
	case "update":
		return a.usersUpdate(ctx, rest)
	case "delete":
		return a.usersDelete(ctx, rest)
	}
	return fmt.Errorf("usage: dashboard users list|add|update|delete")
}

func (a *app) usersList(ctx context.Context) error {
	rows, err := a.users.List(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.stdout, "Belum ada pengguna")
		return nil
	}
	w := table(a.stdout)
	fmt.Fprintln(w, "ID\tNAMA\tEMAIL\tROLE\tDEPARTEMEN\tSTATUS")
	for _, u := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.Department, u.Status)
	}
	return w.Flush()
}

func (a *app) usersAdd(ctx context.Context, args []string) error {
	fs := a.flags("users add")
	name := fs.String("name", "", "Full name")
	email := fs.String("email", "", "Email address")
	role := fs.String("role", string(models.RoleUser), "admin, editor, finance or user")
	department := fs.String("department", "", "Department")
	status := fs.String("status", string(models.StatusActive), "active or inactive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := a.users.Create(ctx, gateway.UserInput{
		Name:       strings.TrimSpace(*name),
		Email:      strings.ToLower(strings.TrimSpace(*email)),
		Role:       models.Role(*role),
		Department: *department,
		Status:     models.Status(*status),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s\t%s\n", u.ID, u.Email)
	return nil
}

func (a *app) usersUpdate(ctx context.Context, args []string) error {
	fs := a.flags("users update")
	id := fs.String("id", "", "User ID")
	name := fs.String("name", "", "Full name")
	email := fs.String("email", "", "Email address")
	role := fs.String("role", "", "admin, editor, finance or user")
	department := fs.String("department", "", "Department")
	status := fs.String("status", "", "active or inactive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("missing -id")
	}

	set := visited(fs)
	var p models.UserPatch
	if set["name"] {
		p.Name = name
	}
	if set["email"] {
		e := strings.ToLower(strings.TrimSpace(*email))
		p.Email = &e
	}
	if set["role"] {
		r := models.Role(*role)
		p.Role = &r
	}
	if set["department"] {
		p.Department = department
	}
	if set["status"] {
		s := models.Status(*status)
		p.Status = &s
	}
	u, err := a.users.Update(ctx, *id, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", u.ID, u.Role, u.Status)
	return nil
}

func (a *app) usersDelete(ctx context.Context, args []string) error {
	fs := a.flags("users delete")
	id := fs.String("id", "", "User ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("missing -id")
	}
	return a.users.Delete(ctx, *id)
}
