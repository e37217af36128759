package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/fiscalsoft/nfeflow/internal/nfefile"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/config"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/store"
	"github.com/fiscalsoft/nfeflow/pkg/nfeflow/store/sqlite"
)

func main() {
	var (
		dbPath     = flag.String("db", "", "Database path (overrides config)")
		configPath = flag.String("config", "", "Config YAML file (optional)")
		dirPath    = flag.String("dir", "", "Directory of NFe XML files to import")
		list       = flag.Bool("list", false, "List stored orders instead of importing")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	ctx := context.Background()

	st, err := sqlite.OpenSQLite(ctx, cfg.Store.Path)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}

	importer := nfeflow.New(nfeflow.Options{
		Store:     st,
		ForceList: cfg.Import.ForceList,
	})
	defer importer.Close()

	if *list {
		listOrders(ctx, st)
		return
	}

	docs := collectDocs(cfg, *dirPath, flag.Args())
	if len(docs) == 0 {
		log.Fatal("Nothing to import: pass -dir or XML file arguments")
	}

	batch := importer.IngestBatch(ctx, docs)

	for i, res := range batch.Results {
		if res.Success {
			log.Printf("%s: imported as order %s", docs[i].Name, res.OrderID)
			continue
		}
		log.Printf("%s: rejected: %s", docs[i].Name, res.ErrorMessage)
	}

	log.Printf("Processed %d document(s): %d succeeded, %d failed",
		batch.Processed, batch.Succeeded, batch.Failed)
	if batch.FirstError != "" {
		log.Printf("First failure: %s", batch.FirstError)
	}
}

func collectDocs(cfg *config.Config, dir string, files []string) []nfeflow.BatchDoc {
	var docs []nfeflow.BatchDoc

	if dir != "" {
		loaded, err := nfefile.LoadDir(dir, cfg.Import.MaxFileBytes)
		if err != nil {
			log.Fatal(err)
		}
		for _, doc := range loaded {
			docs = append(docs, nfeflow.BatchDoc{Name: doc.Name, Content: doc.Content})
		}
	}

	for _, path := range files {
		doc, err := nfefile.Load(path, cfg.Import.MaxFileBytes)
		if err != nil {
			log.Fatal(err)
		}
		docs = append(docs, nfeflow.BatchDoc{Name: doc.Name, Content: doc.Content})
	}
	return docs
}

func listOrders(ctx context.Context, st store.Store) {
	orders, err := st.ListOrders(ctx)
	if err != nil {
		log.Fatal("Failed to list orders:", err)
	}
	if len(orders) == 0 {
		fmt.Println("No orders stored.")
		return
	}
	for _, o := range orders {
		fmt.Printf("%s  %s  %s  %.2f  %s  %d item(s)  %s\n",
			o.ID, o.SellerName, o.Client, o.Total, o.Status, o.ItemCount,
			o.IssuedAt.Format("2006-01-02"))
	}
}
