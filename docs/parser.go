package docs

import (
	"bytes"
	"context"
	"fmt"
	"go/ast"
	"go/doc"
	"go/parser"
	"go/printer"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/docforge/docforge/cache"
	"github.com/docforge/docforge/logger"
)

// GoParser extracts documentation from Go source with go/parser and
// go/doc. Results are cached under the parser category keyed by the
// content hash of the admitted files, so unchanged packages parse once.
type GoParser struct {
	cache *cache.Manager // optional
	log   logger.Logger
}

// NewGoParser creates a parser. cacheManager may be nil to disable
// result caching.
func NewGoParser(cacheManager *cache.Manager, log logger.Logger) *GoParser {
	if log == nil {
		log = logger.NewNop()
	}
	return &GoParser{cache: cacheManager, log: log}
}

// Parse documents the package in req.Dir.
func (p *GoParser) Parse(ctx context.Context, req PackageRequest) (*PackageDoc, error) {
	files, err := admitFiles(req)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Go files admitted in %s", req.Dir)
	}

	hash, err := hashFiles(files)
	if err != nil {
		return nil, err
	}

	if cached, ok := p.fromCache(ctx, hash); ok {
		p.log.Debug().Str("dir", req.Dir).Str("hash", hash).Msg("parse served from cache")
		return cached, nil
	}

	pkgDoc, err := parseFiles(req.Dir, files)
	if err != nil {
		return nil, err
	}
	pkgDoc.ContentHash = hash

	p.toCache(ctx, hash, pkgDoc)
	return pkgDoc, nil
}

// admitFiles lists the .go files in req.Dir passing the include and
// exclude globs, sorted for a stable content hash.
func admitFiles(req PackageRequest) ([]string, error) {
	entries, err := os.ReadDir(req.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", req.Dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") {
			continue
		}
		if !matchesAny(req.Include, entry.Name(), true) {
			continue
		}
		if matchesAny(req.Exclude, entry.Name(), false) {
			continue
		}
		files = append(files, filepath.Join(req.Dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// matchesAny applies globs to a base name. An empty pattern list yields
// emptyResult, so no includes admits everything and no excludes drops
// nothing.
func matchesAny(patterns []string, name string, emptyResult bool) bool {
	if len(patterns) == 0 {
		return emptyResult
	}
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// hashFiles fingerprints file contents in path order.
func hashFiles(files []string) (string, error) {
	digest := xxhash.New()
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		_, _ = digest.WriteString(path)
		_, _ = digest.Write([]byte{0})
		_, _ = digest.Write(data)
	}
	return fmt.Sprintf("%016x", digest.Sum64()), nil
}

// parseFiles runs go/parser over the admitted files and distills the
// result with go/doc. Test files were excluded by the glob stage when
// configured; mixed package names keep only the majority package.
func parseFiles(dir string, files []string) (*PackageDoc, error) {
	fset := token.NewFileSet()

	byPackage := make(map[string][]*ast.File)
	for _, path := range files {
		parsed, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		name := parsed.Name.Name
		byPackage[name] = append(byPackage[name], parsed)
	}

	pkgName := ""
	for name, astFiles := range byPackage {
		if strings.HasSuffix(name, "_test") {
			continue
		}
		if pkgName == "" || len(astFiles) > len(byPackage[pkgName]) {
			pkgName = name
		}
	}
	if pkgName == "" {
		return nil, fmt.Errorf("no non-test package found in %s", dir)
	}

	docPkg, err := doc.NewFromFiles(fset, byPackage[pkgName], dir)
	if err != nil {
		return nil, fmt.Errorf("extracting docs from %s: %w", dir, err)
	}

	out := &PackageDoc{
		Name: pkgName,
		Dir:  dir,
		Doc:  strings.TrimSpace(docPkg.Doc),
	}
	for _, path := range files {
		out.Files = append(out.Files, filepath.Base(path))
	}

	for _, t := range docPkg.Types {
		td := TypeDoc{Name: t.Name, Doc: strings.TrimSpace(t.Doc)}
		for _, method := range t.Methods {
			td.Methods = append(td.Methods, funcDoc(fset, method))
		}
		out.Types = append(out.Types, td)
	}
	for _, fn := range docPkg.Funcs {
		out.Funcs = append(out.Funcs, funcDoc(fset, fn))
	}

	return out, nil
}

// funcDoc renders one function's signature without its body.
func funcDoc(fset *token.FileSet, fn *doc.Func) FuncDoc {
	out := FuncDoc{
		Name:     fn.Name,
		Doc:      strings.TrimSpace(fn.Doc),
		Receiver: fn.Recv,
	}

	if fn.Decl != nil && fn.Decl.Type != nil {
		var buf bytes.Buffer
		if err := printer.Fprint(&buf, fset, fn.Decl.Type); err == nil {
			out.Signature = buf.String()
		}
	}
	return out
}

func (p *GoParser) fromCache(ctx context.Context, hash string) (*PackageDoc, bool) {
	if p.cache == nil {
		return nil, false
	}
	data, found, err := p.cache.GetParserResult(ctx, hash)
	if err != nil || !found {
		return nil, false
	}
	pkgDoc, err := cache.Unmarshal[PackageDoc](data)
	if err != nil {
		_ = p.cache.Delete(ctx, cache.CategoryParser, hash)
		return nil, false
	}
	return &pkgDoc, true
}

func (p *GoParser) toCache(ctx context.Context, hash string, pkgDoc *PackageDoc) {
	if p.cache == nil {
		return
	}
	data, err := cache.Marshal(*pkgDoc)
	if err != nil {
		return
	}
	if err := p.cache.SetParserResult(ctx, hash, data); err != nil {
		p.log.Warn().Err(err).Str("hash", hash).Msg("failed to cache parse result")
	}
}
