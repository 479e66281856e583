package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/KaramelBytes/datahub-cli/internal/analysis"
	"github.com/KaramelBytes/datahub-cli/internal/chart"
	"github.com/KaramelBytes/datahub-cli/internal/dataset"
	"github.com/KaramelBytes/datahub-cli/internal/predict"
	"github.com/KaramelBytes/datahub-cli/internal/session"
)

var errBadRequest = errors.New("bad request")

// invalid marks err as a client mistake; typed errors inside keep their status.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", errBadRequest, err)
}

type columnInfo struct {
	Name  string        `json:"name"`
	DType dataset.DType `json:"dtype"`
	Nulls int           `json:"nulls"`
}

type sessionInfo struct {
	ID       string       `json:"id"`
	FileName string       `json:"file_name"`
	Rows     int          `json:"rows"`
	Cols     int          `json:"cols"`
	Summary  string       `json:"summary"`
	Columns  []columnInfo `json:"columns"`
	LoadedAt time.Time    `json:"loaded_at"`
}

func info(sess *session.Session) sessionInfo {
	t := sess.Table
	out := sessionInfo{
		ID:       sess.ID,
		FileName: sess.FileName,
		Rows:     t.Rows(),
		Cols:     t.Width(),
		Summary:  analysis.Summary(t),
		LoadedAt: sess.LoadedAt,
	}
	for i := 0; i < t.Width(); i++ {
		c := t.ColumnAt(i)
		out.Columns = append(out.Columns, columnInfo{Name: c.Name(), DType: c.DType(), Nulls: c.NullCount()})
	}
	return out
}

func (s *Server) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "sessions": s.store.Len()})
}

// upload reads the multipart "file" field and parses it into a table.
func (s *Server) upload(c *fiber.Ctx) (string, *dataset.Table, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, invalid(fmt.Errorf("multipart field %q: %w", "file", err))
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	t, err := dataset.Load(fh.Filename, data, s.opt.Load)
	if err != nil {
		return "", nil, err
	}
	s.log.Debug("dataset loaded", "file", fh.Filename, "bytes", len(data), "rows", t.Rows(), "cols", t.Width())
	return fh.Filename, t, nil
}

func (s *Server) createSession(c *fiber.Ctx) error {
	name, t, err := s.upload(c)
	if err != nil {
		return err
	}
	sess := s.store.Create(name, t)
	return c.Status(fiber.StatusCreated).JSON(info(sess))
}

func (s *Server) replaceDataset(c *fiber.Ctx) error {
	if _, err := s.store.Get(c.Params("id")); err != nil {
		return err
	}
	name, t, err := s.upload(c)
	if err != nil {
		return err
	}
	sess, err := s.store.Replace(c.Params("id"), name, t)
	if err != nil {
		return err
	}
	return c.JSON(info(sess))
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	if err := s.store.Delete(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getSession(c *fiber.Ctx) error {
	sess, err := s.store.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(info(sess))
}

func (s *Server) table(c *fiber.Ctx) (*dataset.Table, error) {
	sess, err := s.store.Get(c.Params("id"))
	if err != nil {
		return nil, err
	}
	return sess.Table, nil
}

func (s *Server) describe(c *fiber.Ctx) error {
	t, err := s.table(c)
	if err != nil {
		return err
	}
	d, err := analysis.Describe(t)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"summary": analysis.Summary(t),
		"describe": encodeTable(d),
		"dtypes":   encodeTable(analysis.DTypes(t)),
	})
}

func (s *Server) head(c *fiber.Ctx) error {
	t, err := s.table(c)
	if err != nil {
		return err
	}
	return c.JSON(encodeTable(analysis.Head(t, c.QueryInt("n", 5))))
}

func (s *Server) tail(c *fiber.Ctx) error {
	t, err := s.table(c)
	if err != nil {
		return err
	}
	return c.JSON(encodeTable(analysis.Tail(t, c.QueryInt("n", 5))))
}

func (s *Server) valueCounts(c *fiber.Ctx) error {
	t, err := s.table(c)
	if err != nil {
		return err
	}
	counts, err := analysis.ValueCounts(t, c.Query("column"), c.QueryInt("top", 10))
	if err != nil {
		return err
	}
	figs, err := chart.ValueCountFigures(counts)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"table": encodeTable(counts), "figures": figs})
}

type aggregateRequest struct {
	analysis.AggregationSpec
	Chart *chart.Request `json:"chart,omitempty"`
}

// aggregateFigure runs the aggregation and, when a chart is requested, builds
// it from the aggregated table.
func (s *Server) aggregateFigure(c *fiber.Ctx, needChart bool) (*dataset.Table, *chart.Figure, error) {
	t, err := s.table(c)
	if err != nil {
		return nil, nil, err
	}
	var req aggregateRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, nil, invalid(fmt.Errorf("decode body: %w", err))
	}
	if err := req.Validate(t); err != nil {
		return nil, nil, invalid(err)
	}
	agg, err := analysis.Aggregate(t, req.AggregationSpec)
	if err != nil {
		return nil, nil, err
	}
	if req.Chart == nil {
		if needChart {
			return nil, nil, invalid(errors.New("chart request missing"))
		}
		return agg, nil, nil
	}
	if err := req.Chart.Validate(agg); err != nil {
		return nil, nil, invalid(err)
	}
	fig, err := chart.Build(agg, *req.Chart)
	if err != nil {
		return nil, nil, err
	}
	return agg, fig, nil
}

func (s *Server) aggregate(c *fiber.Ctx) error {
	agg, fig, err := s.aggregateFigure(c, false)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"table": encodeTable(agg), "figure": fig})
}

func (s *Server) chartImage(c *fiber.Ctx) error {
	format, err := chart.ParseFormat(c.Query("format"))
	if err != nil {
		return invalid(err)
	}
	_, fig, err := s.aggregateFigure(c, true)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := chart.Render(fig, &buf, format, c.QueryInt("width", s.opt.ChartWidth), c.QueryInt("height", s.opt.ChartHeight)); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.Send(buf.Bytes())
}

type predictResponse struct {
	*predict.Result
	TrainSize int       `json:"train_size"`
	TestSize  int       `json:"test_size"`
	MSEText   string    `json:"mse_text"`
	Table     tableJSON `json:"table"`
}

func (s *Server) predict(c *fiber.Ctx) error {
	t, err := s.table(c)
	if err != nil {
		return err
	}
	var spec predict.ModelSpec
	if err := c.BodyParser(&spec); err != nil {
		return invalid(fmt.Errorf("decode body: %w", err))
	}
	if err := spec.Validate(t); err != nil {
		return invalid(err)
	}
	res, err := predict.Run(t, spec, s.opt.Predict)
	if err != nil {
		return err
	}
	return c.JSON(predictResponse{
		Result:    res,
		TrainSize: len(res.TrainRows),
		TestSize:  len(res.TestRows),
		MSEText:   predict.FormatMSE(res.MSE),
		Table:     encodeTable(res.Table),
	})
}
