package handler

import (
	"bytes"
	stderrors "errors"
	"io"
	"mime"
	"net/http"

	"github.com/laborplan/laborplan/internal/ingest"
	"github.com/laborplan/laborplan/pkg/errors"
)

// uploadField multipart 表单中的文件字段
const uploadField = "file"

// ImportResponse 导入响应
type ImportResponse struct {
	Success bool           `json:"success"`
	Report  *ingest.Report `json:"report"`
}

// ImportModelReferences 导入型号参考工作簿
func (h *PlanHandler) ImportModelReferences(w http.ResponseWriter, r *http.Request) {
	body, err := h.readUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	report, err := h.svc.ImportModelReferences(r.Context(), body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ImportResponse{Success: true, Report: report})
}

// ImportDemand 导入期间需求工作簿
func (h *PlanHandler) ImportDemand(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromVars(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	body, err := h.readUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	report, err := h.svc.ImportDemand(r.Context(), period, body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ImportResponse{Success: true, Report: report})
}

// readUpload 读取上传的工作簿，支持 multipart 表单或原始请求体
func (h *PlanHandler) readUpload(w http.ResponseWriter, r *http.Request) (io.Reader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	var (
		data []byte
		err  error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		data, err = h.readFormFile(r)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.New(errors.CodeInvalidInput, "上传文件过大").
				WithField("limit", h.maxUpload)
		}
		if errors.GetCode(err) != errors.CodeUnknown {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "读取上传文件失败")
	}
	if len(data) == 0 {
		return nil, errors.InvalidInput(uploadField, "文件为空")
	}
	return bytes.NewReader(data), nil
}

func (h *PlanHandler) readFormFile(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "解析上传表单失败")
	}
	f, _, err := r.FormFile(uploadField)
	if err != nil {
		return nil, errors.InvalidInput(uploadField, "缺少上传文件")
	}
	defer f.Close()
	return io.ReadAll(f)
}
