package syncer

import (
	"sort"

	"github.com/athebyme/offers-service/internal/domain/models"
)

// Reconcile возвращает те записи remote, которых еще нет локально.
//
// localRemoteIDs — отсортированный по возрастанию список remote_id уже
// сохраненных предложений товара, без дубликатов (вызывающая сторона
// сортирует после загрузки из базы). Записи без обязательных полей
// отбрасываются до сравнения. Каждый локальный id засчитывается совпавшим
// не более одного раза: найденный id удаляется из рабочего списка, поэтому
// дубликаты в удаленной выдаче не раздувают число совпадений. Порядок
// уцелевших записей повторяет порядок просмотра. Сложность O((n+m) log n).
func Reconcile(localRemoteIDs []int64, remote []models.RemoteOffer) []models.RemoteOffer {
	// Рабочая копия: входной срез не изменяется
	pending := make([]int64, len(localRemoteIDs))
	copy(pending, localRemoteIDs)

	var fresh []models.RemoteOffer
	for _, offer := range remote {
		if !offer.Valid() {
			continue
		}

		id := *offer.ID
		j := sort.Search(len(pending), func(i int) bool { return pending[i] >= id })
		if j < len(pending) && pending[j] == id {
			// Предложение уже синхронизировано; потребляем локальный id
			pending = append(pending[:j], pending[j+1:]...)
			continue
		}

		fresh = append(fresh, offer)
	}

	return fresh
}
