package dialogue

// Flow names, used by the transport layer to open dialogues.
const (
	FlowRunShartash = "run_shartash"
	FlowRunUktus    = "run_uktus"
	FlowFriend      = "friend"
	FlowRelay       = "relay"
	FlowCamp        = "camp"
	FlowWaitlist    = "camp_waitlist"
	FlowBreakfast   = "breakfast"
	FlowProfile     = "profile"
	FlowFeedback    = "feedback"
)

// Callback uniques. BtnFriend and BtnJoinWaitlist leak out of refusal
// messages, so the transport layer routes them back into Start.
const (
	btnBack   = "dlg_back"
	btnCancel = "dlg_cancel"
	btnPaid   = "dlg_paid"

	btnTierOneTime = "tier_onetime"
	btnTierMonthly = "tier_monthly"
	btnTierHalf    = "tier_50"
	btnTierFull    = "tier_100"

	btnStagesDone = "stages_done"
	btnStageAll   = "stage_all"
	stageBtn      = "stage" // data carries the stage id

	btnMenuItem    = "bf_item" // data carries the menu key
	btnMenuReset   = "bf_reset"
	btnMenuDone    = "bf_done"
	btnMenuConfirm = "bf_confirm"
	btnMenuCancel  = "bf_drop"
	btnMenuChange  = "bf_change"

	btnWaitConfirm = "wait_confirm"

	btnEditStages = "edit_stages"
	btnEditPace   = "edit_pace"
	btnEditName   = "edit_name"
	btnEditPhone  = "edit_phone"

	// BtnFriend offers registering a second person from refusal and
	// completion messages.
	BtnFriend = "friend_reg"
	// BtnJoinWaitlist offers the waiting list when the camp is full.
	BtnJoinWaitlist = "join_waitlist"
	// BtnBreakfast opens the breakfast pre-order, offered from the run
	// sub-menu and after a completed run registration.
	BtnBreakfast = "menu_breakfast"
)

const (
	msgCancelled     = "Хорошо, отменяю. Возвращайся, когда будешь готов(а)!"
	msgInternalError = "Что-то пошло не так 😔 Попробуй ещё раз чуть позже."

	msgAskName        = "Как тебя зовут? Напиши имя и фамилию."
	msgAskPhone       = "Отправь свой номер телефона или поделись контактом кнопкой ниже."
	msgAskFriendName  = "Запишем твоего друга! Напиши его имя и фамилию."
	msgAskFriendPhone = "Какой у него номер телефона?"
	msgAskPace        = "Укажи свой примерный темп, например 5:30."
	msgAskDiet        = "Есть ли у тебя особенности питания? Напиши, например: вегетарианство, аллергия на орехи. Если нет, напиши «нет»."
	msgAskPrefs       = "Пожелания по размещению? Если нет, напиши «нет»."
	msgAskFeedback    = "Напиши свой отзыв или предложение, я передам его организаторам."
	msgFeedbackSent   = "Спасибо! Передал(а) твоё сообщение организаторам 🙌"

	msgPaid          = "Отлично, ты в списке! Ждём тебя 🎉"
	msgPaymentFailed = "Не получилось сохранить регистрацию 😔 Напиши нам, и мы всё поправим."

	msgFollowUp = "Кстати, могу заодно принять предзаказ завтрака после пробежки или записать твоего друга 😉"

	msgCampFull    = "К сожалению, все места заняты 😔 Могу записать тебя в лист ожидания: если место освободится, мы напишем."
	msgWaitlisted  = "Записал(а) тебя в лист ожидания. Если место освободится, мы напишем!"
	msgNoActiveRun = "Предзаказ завтрака доступен после записи на воскресную пробежку."

	labelBack        = "⬅️ Назад"
	labelCancel      = "❌ Отмена"
	labelPaid        = "✅ Я оплатил(-а)"
	labelPay         = "💳 Оплатить"
	labelOneTime     = "Разовое занятие"
	labelMonthly     = "Абонемент на месяц"
	labelCampHalf    = "Предоплата 50%"
	labelCampFull    = "Оплата 100%"
	labelFriend      = "👥 Записать друга"
	labelBreakfast   = "🍳 Заказать завтрак"
	labelJoinWait    = "📝 В лист ожидания"
	labelStagesDone  = "✅ Готово"
	labelAllStages   = "Весь круг 😎"
	labelMenuReset   = "🗑 Сбросить"
	labelMenuDone    = "✅ Готово"
	labelConfirm     = "✅ Подтвердить"
	labelChangeOrder = "✏️ Изменить заказ"
	labelDropOrder   = "🗑 Отменить заказ"
	labelEditStages  = "✏️ Изменить этапы"
	labelEditPace    = "⏱ Изменить темп"
	labelEditName    = "✏️ Изменить имя"
	labelEditPhone   = "📱 Изменить телефон"
)
