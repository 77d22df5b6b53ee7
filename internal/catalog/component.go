package catalog

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ibus-m17n/internal/config"
	"ibus-m17n/internal/security"
)

// EngineDesc is the XML form of an engine in an IBus component file.
type EngineDesc struct {
	XMLName     xml.Name `xml:"engine"`
	Name        string   `xml:"name"`
	LongName    string   `xml:"longname"`
	Description string   `xml:"description"`
	Language    string   `xml:"language"`
	License     string   `xml:"license"`
	Author      string   `xml:"author"`
	Icon        string   `xml:"icon"`
	Layout      string   `xml:"layout"`
	Rank        int      `xml:"rank"`
	Symbol      string   `xml:"symbol,omitempty"`
}

// EngineList is the <engines> element, also printed on its own by -xml.
type EngineList struct {
	XMLName xml.Name     `xml:"engines"`
	Engines []EngineDesc `xml:"engine"`
}

// Component is an IBus component file.
type Component struct {
	XMLName     xml.Name   `xml:"component"`
	Name        string     `xml:"name"`
	Description string     `xml:"description"`
	Exec        string     `xml:"exec"`
	Version     string     `xml:"version"`
	Author      string     `xml:"author"`
	License     string     `xml:"license"`
	Homepage    string     `xml:"homepage"`
	Textdomain  string     `xml:"textdomain"`
	Engines     EngineList `xml:"engines"`
}

// Desc returns the XML description of e.
func (e EngineInfo) Desc() EngineDesc {
	return EngineDesc{
		Name:        e.Name,
		LongName:    e.LongName,
		Description: e.Description,
		Language:    e.Language,
		License:     e.License,
		Author:      e.Author,
		Icon:        e.Icon,
		Layout:      e.Layout,
		Rank:        e.Rank,
		Symbol:      e.Symbol,
	}
}

// EngineList returns the <engines> element of the catalog.
func (c *Catalog) EngineList() EngineList {
	list := EngineList{Engines: make([]EngineDesc, 0, len(c.engines))}
	for _, e := range c.engines {
		list.Engines = append(list.Engines, e.Desc())
	}
	return list
}

// Component returns the component describing the catalog.
func (c *Catalog) Component(cfg config.IBusConfig) Component {
	return Component{
		Name:        cfg.ComponentName,
		Description: "M17N",
		Exec:        cfg.ExecPath,
		Version:     ComponentVersion,
		Author:      Author,
		License:     License,
		Homepage:    Homepage,
		Textdomain:  cfg.Textdomain,
		Engines:     c.EngineList(),
	}
}

// WriteEngines writes the <engines> XML of the catalog to w.
func (c *Catalog) WriteEngines(w io.Writer) error {
	return writeXML(w, c.EngineList(), false)
}

// WriteComponent writes a complete component file to w.
func (c *Catalog) WriteComponent(w io.Writer, cfg config.IBusConfig) error {
	return writeXML(w, c.Component(cfg), true)
}

// InstallComponent writes the component file into dir, by default the
// user's IBus component directory, and returns its path.
func (c *Catalog) InstallComponent(dir string, cfg config.IBusConfig) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".local", "share", "ibus", "component")
	}
	path := filepath.Join(dir, "m17n.xml")
	w, err := security.NewSecureFileWriter(path, security.PermPublicFile)
	if err != nil {
		return "", fmt.Errorf("create component file: %w", err)
	}
	if err := c.WriteComponent(w, cfg); err != nil {
		w.Abort()
		return "", err
	}
	if err := w.Commit(); err != nil {
		return "", err
	}
	return path, nil
}

func writeXML(w io.Writer, v any, header bool) error {
	if header {
		if _, err := io.WriteString(w, `<?xml version="1.0" encoding="utf-8"?>`+"\n"); err != nil {
			return err
		}
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
