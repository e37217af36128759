// catalogctl manages the product catalog: the explicit lifecycle side of
// products, next to the implicit creation the importer performs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/store"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/store/sqlite"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: catalogctl -db <path> <command> [flags]

Commands:
  list                      list all products
  show   -id N              show one product
  add    -code C -name N -price P [-desc D] [-unit U] [-stock S]
  update -id N [-code C] [-name N] [-price P] [-desc D] [-unit U] [-stock S]
  delete -id N`)
	os.Exit(2)
}

func main() {
	var (
		dbPath = flag.String("db", "", "Database path (required)")
		id     = flag.Int64("id", 0, "Product id")
		code   = flag.String("code", "", "Product code")
		name   = flag.String("name", "", "Product name")
		desc   = flag.String("desc", "", "Product description")
		unit   = flag.String("unit", "UN", "Unit class")
		price  = flag.Float64("price", 0, "Unit price")
		stock  = flag.Int64("stock", 0, "Stock quantity")
	)
	flag.Usage = usage
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("-db required")
	}
	if flag.NArg() != 1 {
		usage()
	}

	ctx := context.Background()

	st, err := sqlite.OpenSQLite(ctx, *dbPath)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	defer st.Close()

	switch flag.Arg(0) {
	case "list":
		products, err := st.ListProducts(ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, p := range products {
			printProduct(p)
		}

	case "show":
		p, found, err := st.GetProduct(ctx, *id)
		if err != nil {
			log.Fatal(err)
		}
		if !found {
			log.Fatalf("product %d not found", *id)
		}
		printProduct(p)

	case "add":
		if *code == "" || *name == "" {
			log.Fatal("add requires -code and -name")
		}
		newID, err := st.InsertProduct(ctx, store.Product{
			Code:        *code,
			Name:        *name,
			Description: *desc,
			Unit:        *unit,
			UnitPrice:   *price,
			Stock:       *stock,
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(newID)

	case "update":
		p, found, err := st.GetProduct(ctx, *id)
		if err != nil {
			log.Fatal(err)
		}
		if !found {
			log.Fatalf("product %d not found", *id)
		}
		// Only flags the caller actually set are applied.
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "code":
				p.Code = *code
			case "name":
				p.Name = *name
			case "desc":
				p.Description = *desc
			case "unit":
				p.Unit = *unit
			case "price":
				p.UnitPrice = *price
			case "stock":
				p.Stock = *stock
			}
		})
		if err := st.UpdateProduct(ctx, p); err != nil {
			log.Fatal(err)
		}

	case "delete":
		if err := st.DeleteProduct(ctx, *id); err != nil {
			log.Fatal(err)
		}

	default:
		usage()
	}
}

func printProduct(p store.Product) {
	fmt.Printf("%d  %s  %s  %s  %.2f  stock %d\n",
		p.ID, p.Code, p.Name, p.Unit, p.UnitPrice, p.Stock)
}
